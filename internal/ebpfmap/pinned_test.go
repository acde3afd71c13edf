// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ebpfmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flowgate.dev/flowgate/internal/logging"
)

func TestOpenPinned_EmptyPathDegradesToNoop(t *testing.T) {
	logger := logging.New(logging.DefaultConfig())
	s := OpenPinned("", logger)

	assert.False(t, s.Attached())

	_, ok := s.Get(0)
	assert.False(t, ok)

	s.Put(0, Record{Valid: 1, Family: 4})
	_, ok = s.Get(0)
	assert.False(t, ok, "Put on an unattached Store must stay a no-op")

	s.Delete(0)
	assert.NoError(t, s.Close())
}

func TestOpenPinned_MissingPathWarnsAndDegrades(t *testing.T) {
	logger := logging.New(logging.DefaultConfig())
	s := OpenPinned("/nonexistent/path/to/pinned-map", logger)

	assert.False(t, s.Attached())
	assert.NoError(t, s.Close())
}

func TestStore_ForEachOnUnattachedStoreIsNoop(t *testing.T) {
	logger := logging.New(logging.DefaultConfig())
	s := OpenPinned("", logger)

	called := false
	err := s.ForEach(func(slot uint32, rec Record) { called = true })

	assert.NoError(t, err)
	assert.False(t, called)
}
