package progress

import (
	"os"
	"path/filepath"

	"github.com/dipdup-net/acquire/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Load - reads the checkpoint artifact. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(path), nil
		}
		return nil, errors.Wrap(err, "read checkpoint")
	}

	store := NewStore(path)
	if err := json.Unmarshal(data, store); err != nil {
		return nil, errors.Wrapf(err, "parse checkpoint %s", path)
	}
	store.path = path

	if store.ProcessedEntities == nil {
		store.ProcessedEntities = make(map[string]models.ProgressRecord)
	}
	if store.Runs == nil {
		store.Runs = make([]models.RunRecord, 0)
	}
	for id, record := range store.ProcessedEntities {
		if !record.Status.IsTerminal() {
			log.Warn().Str("entity", id).Str("status", string(record.Status)).Msg("dropping non-terminal progress record")
			delete(store.ProcessedEntities, id)
		}
	}
	if store.APICallsInLastHour < 0 {
		store.APICallsInLastHour = 0
	}

	completed := store.CompletedCount
	store.recount()
	if completed != store.CompletedCount {
		log.Warn().Int("stored", completed).Int("actual", store.CompletedCount).Msg("completed count mismatch, recounted")
	}
	return store, nil
}

// Save - writes the checkpoint to a temp file in the same directory, syncs it and renames it over the artifact.
// A crash at any point leaves either the previous or the new checkpoint on disk.
func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("checkpoint path is empty")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create checkpoint directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp checkpoint")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp checkpoint")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp checkpoint")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp checkpoint")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrap(err, "replace checkpoint")
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
