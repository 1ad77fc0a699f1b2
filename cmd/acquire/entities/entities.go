package entities

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/dipdup-net/acquire/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errors
var (
	ErrUnknownFormat = errors.New("unknown entity list format")
	ErrEmptyID       = errors.New("entity without id")
)

type document struct {
	Entities []models.Entity `json:"entities" yaml:"entities"`
}

// File - entity list kept in a JSON or YAML file. Both a bare list and an `entities` document are accepted.
type File struct {
	path string
}

// NewFile -
func NewFile(path string) *File {
	return &File{path}
}

// Entities -
func (f *File) Entities(ctx context.Context) ([]models.Entity, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrap(err, "read entity list")
	}

	var (
		list []models.Entity
		doc  document
	)
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &list); err != nil {
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, errors.Wrap(err, f.path)
			}
			list = doc.Entities
		}
	case ".json":
		if err := json.Unmarshal(data, &list); err != nil {
			if err := json.Unmarshal(data, &doc); err != nil {
				return nil, errors.Wrap(err, f.path)
			}
			list = doc.Entities
		}
	default:
		return nil, errors.Wrap(ErrUnknownFormat, f.path)
	}

	return normalize(list)
}

func normalize(list []models.Entity) ([]models.Entity, error) {
	result := make([]models.Entity, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for i := range list {
		entity := list[i]
		entity.ID = strings.TrimSpace(entity.ID)
		entity.Name = strings.TrimSpace(entity.Name)
		if entity.ID == "" {
			return nil, errors.Wrapf(ErrEmptyID, "entry #%d", i)
		}
		if _, ok := seen[entity.ID]; ok {
			log.Warn().Str("entity", entity.ID).Msg("duplicate entity in the list, first one is kept")
			continue
		}
		seen[entity.ID] = struct{}{}
		if entity.Name == "" {
			entity.Name = entity.ID
		}
		result = append(result, entity)
	}
	return result, nil
}

// Filter - keeps entities matching the jurisdiction and category lists. Matching is case-insensitive.
func Filter(list []models.Entity, filters config.Filters) []models.Entity {
	if len(filters.Jurisdictions) == 0 && len(filters.Categories) == 0 {
		return list
	}

	result := make([]models.Entity, 0, len(list))
	for i := range list {
		if !match(filters.Jurisdictions, list[i].Jurisdiction) {
			continue
		}
		if !match(filters.Categories, list[i].Category) {
			continue
		}
		result = append(result, list[i])
	}
	return result
}

func match(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for i := range allowed {
		if strings.EqualFold(allowed[i], value) {
			return true
		}
	}
	return false
}

// Cap - first `limit` entities, 0 means unlimited
func Cap(list []models.Entity, limit int) []models.Entity {
	if limit <= 0 || len(list) <= limit {
		return list
	}
	return list[:limit]
}

// Load - reads, filters and caps the population
func Load(ctx context.Context, repo models.EntityRepository, cfg config.Acquire) ([]models.Entity, error) {
	list, err := repo.Entities(ctx)
	if err != nil {
		return nil, err
	}
	list, err = normalize(list)
	if err != nil {
		return nil, err
	}
	total := len(list)
	list = Cap(Filter(list, cfg.Filters), cfg.MaxEntities)

	log.Info().Int("total", total).Int("population", len(list)).Msg("entity list loaded")
	return list, nil
}
