package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTask(t *testing.T) {
	clock := &fakeClock{}
	s := NewDeletionScheduler(clock.AfterFunc)

	ran := 0
	require.True(t, s.Schedule("c1", 10*time.Second, func() { ran++ }))
	assert.Equal(t, []string{"c1"}, s.Pending())
	assert.Equal(t, 10*time.Second, clock.timers[0].delay)

	clock.fire()
	assert.Equal(t, 1, ran)
	assert.Empty(t, s.Pending())
}

func TestSchedulerSupersedes(t *testing.T) {
	clock := &fakeClock{}
	s := NewDeletionScheduler(clock.AfterFunc)

	var ran []string
	s.Schedule("c1", time.Second, func() { ran = append(ran, "first") })
	s.Schedule("c1", time.Second, func() { ran = append(ran, "second") })
	assert.True(t, clock.timers[0].stopped)

	// A superseded timer that fires anyway must not run.
	clock.timers[0].f()
	assert.Empty(t, ran)

	clock.fire()
	assert.Equal(t, []string{"second"}, ran)
}

func TestSchedulerCancel(t *testing.T) {
	clock := &fakeClock{}
	s := NewDeletionScheduler(clock.AfterFunc)

	s.Schedule("c1", time.Second, func() { t.Fatal("cancelled task ran") })
	assert.True(t, s.Cancel("c1"))
	assert.False(t, s.Cancel("c1"))
	assert.Equal(t, 0, clock.fire())
}

func TestSchedulerStop(t *testing.T) {
	clock := &fakeClock{}
	s := NewDeletionScheduler(clock.AfterFunc)

	s.Schedule("c1", time.Second, func() { t.Fatal("stopped task ran") })
	s.Schedule("c2", time.Second, func() { t.Fatal("stopped task ran") })
	assert.Equal(t, 2, s.Stop())
	assert.False(t, s.Schedule("c3", time.Second, func() {}))
	assert.Equal(t, 0, clock.fire())
	assert.Empty(t, s.Pending())
}

func TestSchedulerRealTimers(t *testing.T) {
	s := NewDeletionScheduler(nil)
	done := make(chan struct{})
	s.Schedule("c1", time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}
