// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store persists macros as JSON documents at a fixed per-user
// application-data location. Writes are atomic and durable; loads validate
// before returning, so a corrupt macro is rejected rather than partially
// loaded.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	xglog "github.com/ManuGH/replayd/internal/log"
	"github.com/ManuGH/replayd/internal/macro"
)

// EnvDataDir overrides the default per-user data directory.
const EnvDataDir = "REPLAYD_DATA_DIR"

// ErrNotFound reports a macro identifier with no stored document.
var ErrNotFound = errors.New("macro not found")

// Store reads and writes macros under a single root directory.
type Store struct {
	dir string
}

// DefaultDir resolves the per-user macro directory, honoring EnvDataDir.
func DefaultDir() (string, error) {
	if env := strings.TrimSpace(os.Getenv(EnvDataDir)); env != "" {
		return filepath.Join(env, "macros"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "replayd", "macros"), nil
}

// New opens a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create macro dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, slugify(name)+".json")
}

// Save writes the macro atomically and returns its storage identifier.
func (s *Store) Save(m macro.Macro) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	doc, err := encode(m)
	if err != nil {
		return "", err
	}
	path := s.path(m.Name)
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("create pending macro file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := xglog.WithComponent("store")
			logger.Debug().Err(err).Msg("cleanup pending macro file")
		}
	}()
	if _, err := pending.Write(doc); err != nil {
		return "", fmt.Errorf("write macro data: %w", err)
	}
	// fsync + rename: durable and atomic.
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("atomically replace macro file: %w", err)
	}
	return slugify(m.Name), nil
}

// Load reads and validates a stored macro by identifier or display name.
func (s *Store) Load(name string) (macro.Macro, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return macro.Macro{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return macro.Macro{}, fmt.Errorf("read macro: %w", err)
	}
	m, err := decode(data)
	if err != nil {
		return macro.Macro{}, err
	}
	if err := m.Validate(); err != nil {
		return macro.Macro{}, err
	}
	return m, nil
}

// Delete removes a stored macro.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete macro: %w", err)
	}
	return nil
}

// Info summarizes one stored macro for listings.
type Info struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Events   int           `json:"events"`
	Duration time.Duration `json:"duration_ns"`
	Modified time.Time     `json:"modified"`
}

// List enumerates stored macros, sorted case-insensitively by name.
// Unreadable or corrupt documents are skipped with a warning.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list macro dir: %w", err)
	}
	logger := xglog.WithComponent("store")
	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		m, err := s.Load(id)
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable macro")
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			ID:       id,
			Name:     m.Name,
			Events:   len(m.Events),
			Duration: m.Duration,
			Modified: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func encode(m macro.Macro) ([]byte, error) {
	doc := document{
		Schema:    schemaVersion,
		Name:      m.Name,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		Duration:  int64(m.Duration),
		Events:    make([]eventRecord, 0, len(m.Events)),
	}
	for _, ev := range m.Events {
		doc.Events = append(doc.Events, eventRecord{
			Kind:   ev.Kind.String(),
			Code:   ev.Code,
			DX:     ev.DX,
			DY:     ev.DY,
			Wheel:  ev.Wheel,
			Offset: int64(ev.Offset),
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}
