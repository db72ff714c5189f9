package store

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// AddLibrary opens an auxiliary project file as a read-only library and
// registers it under its project name, which becomes the code prefix
// for rate imports. Returns the registered name.
func (s *Store) AddLibrary(path string) (string, error) {
	lib, err := Open(path, s.opts)
	if err != nil {
		return "", err
	}
	lib.readOnly = true
	name := lib.ProjectName()
	if name == "" {
		return "", fmt.Errorf("%w: library %s has no project name", ErrValidation, path)
	}
	s.libraries[name] = lib
	log.Info().Str("library", name).Str("path", path).Msg("library registered")
	return name, nil
}

// UsingLibrary returns a read-only binding of the named library, so
// table reads (resources, items) temporarily resolve against it.
func (s *Store) UsingLibrary(name string) (*Store, error) {
	lib, ok := s.libraries[name]
	if !ok {
		return nil, fmt.Errorf("%w: library %q", ErrNotFound, name)
	}
	return lib, nil
}

// Libraries lists the registered library names.
func (s *Store) Libraries() []string {
	out := make([]string, 0, len(s.libraries))
	for name := range s.libraries {
		out = append(out, name)
	}
	return out
}
