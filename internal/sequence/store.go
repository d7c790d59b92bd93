// Package sequence persists named action macros in the shared memory store
// and replays them step by step against the live screen. Sequences are
// deliberately dumb: a linear list of remembered actions, re-grounded at
// execution time so coordinate drift between recording and replay cannot
// send a click into the wrong element.
package sequence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/agent"
)

// recordBackend is the slice of the memory store the sequence layer uses.
type recordBackend interface {
	SaveRecord(ctx context.Context, embedText string, rec schemas.MemoryRecord) error
	SearchRecords(ctx context.Context, query string, limit int) ([]schemas.SearchHit, error)
	RecentRecords(ctx context.Context, limit int) ([]schemas.MemoryRecord, error)
}

// loadLimit bounds how many candidate records one Load pulls back. Sequences
// are short; anything near this limit indicates store pollution.
const loadLimit = 256

// Store reads and writes sequences as ordered memory records. Each step is
// one record carrying the sequence name and its position, so the vector
// store needs no schema beyond what learned memories already use.
type Store struct {
	backend recordBackend
	logger  *zap.Logger
}

// NewStore wires a sequence store over the shared memory backend.
func NewStore(backend recordBackend, logger *zap.Logger) *Store {
	return &Store{backend: backend, logger: logger.Named("sequence")}
}

// Save persists the named sequence, one record per step. Steps keep their
// target texts, not coordinates; grounding happens at replay time.
func (s *Store) Save(ctx context.Context, name string, steps []schemas.Action) error {
	if name == "" {
		return fmt.Errorf("sequence name must not be empty")
	}
	if len(steps) == 0 {
		return fmt.Errorf("sequence %q has no steps", name)
	}

	now := time.Now().UTC()
	for i, step := range steps {
		rec := schemas.MemoryRecord{
			Goal:       fmt.Sprintf("sequence %s step %d", name, i+1),
			Action:     step,
			MemoryType: schemas.MemoryTask,
			Source:     schemas.SourceSequence,
			SequenceID: name,
			StepOrder:  i,
			Timestamp:  now,
		}
		if err := s.backend.SaveRecord(ctx, rec.Goal, rec); err != nil {
			return fmt.Errorf("save step %d of sequence %q: %w", i+1, name, err)
		}
	}
	s.logger.Info("Saved sequence", zap.String("name", name), zap.Int("steps", len(steps)))
	return nil
}

// Load returns the named sequence's actions in step order. A name with no
// stored steps is a hard error; there is nothing sensible to replay.
func (s *Store) Load(ctx context.Context, name string) ([]schemas.Action, error) {
	hits, err := s.backend.SearchRecords(ctx, "sequence "+name, loadLimit)
	if err != nil {
		return nil, fmt.Errorf("load sequence %q: %w", name, err)
	}

	var steps []schemas.MemoryRecord
	for _, h := range hits {
		if h.Record.Source == schemas.SourceSequence && h.Record.SequenceID == name {
			steps = append(steps, h.Record)
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %q", agent.ErrSequenceNotFound, name)
	}

	// Vector similarity returns steps in arbitrary order; StepOrder is the
	// source of truth. Duplicate orders keep the first seen.
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
	actions := make([]schemas.Action, 0, len(steps))
	lastOrder := -1
	for _, rec := range steps {
		if rec.StepOrder == lastOrder {
			continue
		}
		lastOrder = rec.StepOrder
		actions = append(actions, rec.Action)
	}
	return actions, nil
}

// List returns the distinct names of recently written sequences.
func (s *Store) List(ctx context.Context) ([]string, error) {
	recs, err := s.backend.RecentRecords(ctx, loadLimit)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}

	seen := make(map[string]struct{})
	var names []string
	for _, rec := range recs {
		if rec.Source != schemas.SourceSequence || rec.SequenceID == "" {
			continue
		}
		if _, dup := seen[rec.SequenceID]; dup {
			continue
		}
		seen[rec.SequenceID] = struct{}{}
		names = append(names, rec.SequenceID)
	}
	return names, nil
}
