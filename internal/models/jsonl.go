package models

import (
	"bufio"
	"context"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// record kinds of the JSONL sink
const (
	LineKindCandidate = "candidate"
	LineKindTotals    = "totals"
	LineKindFiling    = "filing"
)

// Line - one JSONL sink record
type Line struct {
	Kind     string              `json:"kind"`
	EntityID string              `json:"entity_id"`
	Data     jsoniter.RawMessage `json:"data"`
}

// FileSink - append-only JSON lines sink for local runs without a database
type FileSink struct {
	file   *os.File
	totals map[string]struct{}
	mx     sync.Mutex
}

// NewFileSink - opens (or creates) the file and indexes entities which already have totals
func NewFileSink(path string) (*FileSink, error) {
	sink := &FileSink{
		totals: make(map[string]struct{}),
	}

	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			var line Line
			if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
				continue
			}
			if line.Kind == LineKindTotals {
				sink.totals[line.EntityID] = struct{}{}
			}
		}
		scanErr := scanner.Err()
		f.Close()
		if scanErr != nil {
			return nil, errors.Wrap(scanErr, path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	sink.file = file
	return sink, nil
}

// HasTerminalData -
func (s *FileSink) HasTerminalData(ctx context.Context, entityID string) (bool, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	_, ok := s.totals[entityID]
	return ok, nil
}

// SaveCandidate -
func (s *FileSink) SaveCandidate(ctx context.Context, candidate Candidate) error {
	return s.write(LineKindCandidate, candidate.EntityID, candidate)
}

// SaveTotals -
func (s *FileSink) SaveTotals(ctx context.Context, totals []Totals) error {
	for i := range totals {
		if err := s.write(LineKindTotals, totals[i].EntityID, totals[i]); err != nil {
			return err
		}
	}

	s.mx.Lock()
	for i := range totals {
		s.totals[totals[i].EntityID] = struct{}{}
	}
	s.mx.Unlock()
	return nil
}

// SaveFilings -
func (s *FileSink) SaveFilings(ctx context.Context, filings []Filing) error {
	for i := range filings {
		if err := s.write(LineKindFiling, filings[i].EntityID, filings[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close -
func (s *FileSink) Close() error {
	if err := s.file.Sync(); err != nil {
		return err
	}
	return s.file.Close()
}

func (s *FileSink) write(kind, entityID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	line, err := json.Marshal(Line{
		Kind:     kind,
		EntityID: entityID,
		Data:     data,
	})
	if err != nil {
		return err
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, "write sink line")
	}
	return s.file.Sync()
}
