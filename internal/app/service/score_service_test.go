package service

import (
	"testing"

	"cparena/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0, 100))
	assert.Equal(t, 10, clampLimit(-5, 100))
	assert.Equal(t, 25, clampLimit(25, 100))
	assert.Equal(t, 100, clampLimit(500, 100))
}

func TestWindowKeys(t *testing.T) {
	// Window counters must not collide with each other or with the
	// solved-count key.
	seen := map[string]bool{solvedTotalKey: true}
	for _, w := range model.AllWindows {
		key := windowKey(w)
		assert.False(t, seen[key], "duplicate redis key %q", key)
		seen[key] = true
	}
}
