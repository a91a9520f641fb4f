package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/schedule"
)

type overridesFile struct {
	Version   int64                `json:"version"`
	Overrides schedule.OverrideMap `json:"overrides"`
}

// fileStore keeps an override map in a JSON file. A missing file is an empty
// map at version 0.
type fileStore struct {
	path string
}

func (s *fileStore) read() (overridesFile, error) {
	var f overridesFile
	if s.path == "" {
		return f, nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return f, err
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse overrides file %s: %w", s.path, err)
	}
	return f, nil
}

func (s *fileStore) LoadOverrides(_ context.Context, _ string) (schedule.OverrideMap, int64, error) {
	f, err := s.read()
	if err != nil {
		return nil, 0, err
	}
	if f.Overrides == nil {
		f.Overrides = schedule.OverrideMap{}
	}
	return f.Overrides, f.Version, nil
}

func (s *fileStore) SaveOverrides(_ context.Context, _ string, expectedVersion int64, overrides schedule.OverrideMap) (int64, error) {
	if s.path == "" {
		return 0, errors.New("--overrides is required to save changes")
	}
	current, err := s.read()
	if err != nil {
		return 0, err
	}
	if current.Version != expectedVersion {
		return 0, repository.ErrVersionConflict
	}

	next := overridesFile{Version: expectedVersion + 1, Overrides: overrides}
	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return 0, err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return 0, err
	}
	return next.Version, nil
}
