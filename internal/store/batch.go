package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/civilworks/estimator/internal/analysis"
)

// Progress is the handle long batch operations report through. Abort
// takes effect at the checkpoint between items; completed items stay
// persisted.
type Progress struct {
	// OnFraction, when set, receives completion fractions in [0, 1].
	OnFraction func(fraction float64)

	aborted bool
}

// Abort requests a stop at the next checkpoint.
func (p *Progress) Abort() { p.aborted = true }

// Aborted reports whether Abort was called.
func (p *Progress) Aborted() bool { return p != nil && p.aborted }

func (p *Progress) report(done, total int) {
	if p == nil || p.OnFraction == nil || total == 0 {
		return
	}
	p.OnFraction(float64(done) / float64(total))
}

// InsertItemMultiple inserts a parsed item sequence as one undo group,
// one recorded action per completed item. With preserveStructure the
// models' category and parent codes are honoured; without it every
// item lands top-level at the default path. Returns the codes actually
// inserted.
func (s *Store) InsertItemMultiple(items []*analysis.Model, preserveStructure bool, prog *Progress) ([]string, error) {
	if err := s.mutable(); err != nil {
		return nil, err
	}
	batch := uuid.New()
	log.Info().Str("batch", batch.String()).Int("items", len(items)).
		Msg("batch insert started")

	s.BeginGroup(fmt.Sprintf("Import %d items", len(items)))
	defer s.EndGroup()

	var inserted []string
	for i, m := range items {
		if prog.Aborted() {
			log.Warn().Str("batch", batch.String()).Int("completed", i).
				Msg("batch insert aborted")
			return inserted, nil
		}
		item := m
		if !preserveStructure {
			item = m.Copy()
			item.Parent = ""
			item.Category = ""
		}
		code, err := s.InsertItem(item, nil, false, false)
		if err != nil {
			return inserted, fmt.Errorf("item %q: %w", m.Code, err)
		}
		inserted = append(inserted, code)
		prog.report(i+1, len(items))
	}
	log.Info().Str("batch", batch.String()).Int("items", len(inserted)).
		Msg("batch insert finished")
	return inserted, nil
}

// InsertResourceMultiple inserts resources as one undo group with the
// same checkpoint contract as InsertItemMultiple.
func (s *Store) InsertResourceMultiple(resources []ResourceInput, prog *Progress) ([]string, error) {
	if err := s.mutable(); err != nil {
		return nil, err
	}
	s.BeginGroup(fmt.Sprintf("Import %d resources", len(resources)))
	defer s.EndGroup()

	var inserted []string
	for i, in := range resources {
		if prog.Aborted() {
			return inserted, nil
		}
		if !s.CheckInsertResource(in) {
			log.Warn().Str("code", in.Code).Msg("skipping unimportable resource")
			continue
		}
		if err := s.InsertResource(in, nil); err != nil {
			return inserted, fmt.Errorf("resource %q: %w", in.Code, err)
		}
		inserted = append(inserted, in.Code)
		prog.report(i+1, len(resources))
	}
	return inserted, nil
}
