package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (j namedJob) Name() string              { return string(j) }
func (j namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	registry, err := NewRegistry(namedJob("pickup_reminders"), nil)
	require.NoError(t, err)
	require.NoError(t, registry.Register(namedJob("outbox_retention")))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "pickup_reminders", jobs[0].Name())
	assert.Equal(t, "outbox_retention", jobs[1].Name())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "Jobs must hand out a copy")
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	_, err := NewRegistry(namedJob("outbox_retention"), namedJob("outbox_retention"))
	assert.ErrorContains(t, err, "registered twice")

	var zero Registry
	assert.ErrorContains(t, zero.Register(namedJob("")), "no name")
	require.NoError(t, zero.Register(namedJob("late")))
	assert.Equal(t, 1, zero.Len())
}
