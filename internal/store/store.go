// Package store is the single source of truth for project data:
// settings, categories, resources, schedule items and their analysis
// sequences. Every mutation runs in a transaction and is recorded on
// the undo stack.
package store

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/civilworks/estimator/internal/infrastructure/database"
	"github.com/civilworks/estimator/internal/undo"
)

// Error kinds surfaced by store operations.
var (
	// ErrIntegrity marks uniqueness or foreign-key violations; the
	// enclosing transaction is rolled back.
	ErrIntegrity = errors.New("integrity violation")

	// ErrNotFound marks a referenced code or path that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks inputs failing a precondition.
	ErrValidation = errors.New("validation failed")

	// ErrInternal marks invariant violations; logged and raised.
	ErrInternal = errors.New("internal error")

	// ErrMigration re-exports the database version failure.
	ErrMigration = database.ErrMigration

	// ErrReadOnly marks a mutation attempted on a library binding.
	ErrReadOnly = errors.New("store is read only")
)

// CategoryKind selects between the schedule and resource category
// tables.
type CategoryKind int

const (
	KindSchedule CategoryKind = iota
	KindResource
)

// Options tunes store behaviour.
type Options struct {
	// SubAnalysisDepth bounds the rate-propagation iterations across
	// chained sub-analyses.
	SubAnalysisDepth int
}

// DefaultSubAnalysisDepth is the propagation bound used when Options
// leaves it zero.
const DefaultSubAnalysisDepth = 3

// Store wraps the project database, its undo stack and any registered
// read-only libraries.
type Store struct {
	db        *gorm.DB
	undo      *undo.Stack
	opts      Options
	readOnly  bool
	libraries map[string]*Store
}

// New wraps an already-open database. The caller is responsible for
// schema migration (tests use this with an in-memory DB).
func New(db *gorm.DB, opts Options) *Store {
	if opts.SubAnalysisDepth <= 0 {
		opts.SubAnalysisDepth = DefaultSubAnalysisDepth
	}
	return &Store{
		db:        db,
		undo:      undo.NewStack(),
		opts:      opts,
		libraries: map[string]*Store{},
	}
}

// Open opens (or creates) a project file, checks the version tag,
// migrates the schema and seeds required settings. The version check
// comes first so an unsupported file is refused before any mutation.
func Open(path string, opts Options) (*Store, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.CheckVersion(db); err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigration, err)
	}
	if err := database.StampVersion(db); err != nil {
		return nil, err
	}
	s := New(db, opts)
	if err := s.seedSettings(); err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("project opened")
	return s, nil
}

// OpenMemory opens a scratch in-memory store.
func OpenMemory(opts Options) (*Store, error) {
	db, err := database.OpenMemory()
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	if err := database.StampVersion(db); err != nil {
		return nil, err
	}
	s := New(db, opts)
	if err := s.seedSettings(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for report producers and tests.
func (s *Store) DB() *gorm.DB { return s.db }

// UndoStack exposes the undo stack for UI text and undo/redo calls.
func (s *Store) UndoStack() *undo.Stack { return s.undo }

// BeginGroup opens an undo group; mutations until EndGroup collapse
// into one undoable entry.
func (s *Store) BeginGroup(description string) { s.undo.BeginGroup(description) }

// EndGroup closes the innermost undo group.
func (s *Store) EndGroup() { s.undo.EndGroup() }

// mutable guards against writes on read-only library bindings.
func (s *Store) mutable() error {
	if s.readOnly {
		return ErrReadOnly
	}
	return nil
}

// push records an already-performed action on the undo stack.
func (s *Store) push(description string, redo, und func() error) {
	s.undo.Push(undo.New(description, redo, und))
	log.Debug().Str("action", description).Msg("recorded")
}

// inTx runs fn in a transaction. Nested calls reuse gorm's savepoint
// support so inner failures roll back only their own effects.
func (s *Store) inTx(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}
