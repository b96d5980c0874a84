// Package savefile stores save slots and run history in a single JSON file.
// The payload is guarded by a BLAKE2b-256 digest so a hand-edited or truncated
// file is rejected instead of silently loading garbage.
package savefile

import (
	"bytes"
	"cmp"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/highsociety/internal/gamestate"
)

// ErrDigestMismatch is returned when the stored digest does not match the payload.
var ErrDigestMismatch = errors.New("savefile: digest mismatch")

const (
	formatVersion = 1

	// DefaultMaxRuns bounds the run history kept in the file.
	DefaultMaxRuns = 200
)

type payload struct {
	Version int                            `json:"version"`
	Saves   map[string]gamestate.SaveState `json:"saves"`
	Runs    []gamestate.RunRecord          `json:"runs"`
}

type envelope struct {
	Digest  string          `json:"digest"`
	Payload json.RawMessage `json:"payload"`
}

// Store is a file-backed gamestate.Repository and gamestate.RunHistory.
//
// Thread-safe.
type Store struct {
	mu      sync.Mutex
	path    string
	maxRuns int
}

// New returns a store writing to path. The file is created on first write.
func New(path string) *Store {
	return &Store{path: filepath.Clean(path), maxRuns: DefaultMaxRuns}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// LoadSave returns nil, nil when the file or the slot does not exist.
func (s *Store) LoadSave(ctx context.Context, slot string) (*gamestate.SaveState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.read()
	if err != nil {
		return nil, err
	}
	st, ok := p.Saves[slot]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// StoreSave writes st into its slot, replacing any previous content.
func (s *Store) StoreSave(ctx context.Context, st gamestate.SaveState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.read()
	if err != nil {
		return err
	}
	p.Saves[st.Slot] = st
	return s.write(p)
}

// RecordRun appends rec to the history. A repeated id is ignored.
func (s *Store) RecordRun(ctx context.Context, rec gamestate.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.read()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(p.Runs, func(r gamestate.RunRecord) bool { return r.ID == rec.ID }) {
		return nil
	}
	p.Runs = append(p.Runs, rec)
	if extra := len(p.Runs) - s.maxRuns; extra > 0 {
		p.Runs = slices.Delete(p.Runs, 0, extra)
	}
	return s.write(p)
}

// RecentRuns returns up to limit runs of slot, newest first.
func (s *Store) RecentRuns(ctx context.Context, slot string, limit int) ([]gamestate.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []gamestate.RunRecord
	for _, r := range p.Runs {
		if r.Slot == slot {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b gamestate.RunRecord) int {
		if c := b.EndedAt.Compare(a.EndedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) read() (payload, error) {
	empty := payload{Version: formatVersion, Saves: map[string]gamestate.SaveState{}}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("reading save file %s: %w", s.path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return empty, fmt.Errorf("decoding save file %s: %w", s.path, err)
	}
	body, err := compact(env.Payload)
	if err != nil {
		return empty, fmt.Errorf("decoding save file %s: %w", s.path, err)
	}
	if digest(body) != env.Digest {
		return empty, fmt.Errorf("%s: %w", s.path, ErrDigestMismatch)
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return empty, fmt.Errorf("decoding save payload %s: %w", s.path, err)
	}
	if p.Version != formatVersion {
		return empty, fmt.Errorf("save file %s: unsupported version %d", s.path, p.Version)
	}
	if p.Saves == nil {
		p.Saves = map[string]gamestate.SaveState{}
	}
	return p, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *Store) write(p payload) error {
	p.Version = formatVersion
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding save payload: %w", err)
	}
	out, err := json.MarshalIndent(envelope{Digest: digest(body), Payload: body}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding save file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating save dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp save file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp save file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing save file %s: %w", s.path, err)
	}
	return nil
}

func compact(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func digest(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}
