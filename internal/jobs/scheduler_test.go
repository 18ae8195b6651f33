package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscador-gpt/internal/platform/logger"
)

type countingPurger struct {
	calls     int
	retention time.Duration
	err       error
}

func (p *countingPurger) Purge(_ context.Context, retention time.Duration) (int64, error) {
	p.calls++
	p.retention = retention
	return 3, p.err
}

func TestAddActivityPurgeValidatesSchedule(t *testing.T) {
	s := NewScheduler(nil)

	require.NoError(t, s.AddActivityPurge("30 3 * * *", 90, &countingPurger{}))
	assert.Equal(t, 1, s.Entries())

	assert.Error(t, s.AddActivityPurge("not a schedule", 90, &countingPurger{}))
	assert.Error(t, s.AddActivityPurge("30 3 * * *", 0, &countingPurger{}))
	assert.Equal(t, 1, s.Entries())
}

func TestPurgeTaskUsesRetention(t *testing.T) {
	p := &countingPurger{}
	purgeTask(p, 90*24*time.Hour, logger.Nop())()

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 90*24*time.Hour, p.retention)

	p.err = errors.New("db down")
	purgeTask(p, time.Hour, logger.Nop())()
	assert.Equal(t, 2, p.calls)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(nil)
	s.Start()
	s.Stop()
}
