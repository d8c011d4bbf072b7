package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstSightAnswersEachRequestOnce(t *testing.T) {
	sim := &simulator{seen: make(map[string]struct{})}

	assert.True(t, sim.firstSight("event-1"))
	assert.False(t, sim.firstSight("event-1"))
	assert.False(t, sim.firstSight("event-1"))
	assert.True(t, sim.firstSight("event-2"))
}

func TestFirstSightIgnoresEmptyID(t *testing.T) {
	sim := &simulator{seen: make(map[string]struct{})}

	assert.False(t, sim.firstSight(""))
}
