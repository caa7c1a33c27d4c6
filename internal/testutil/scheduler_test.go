package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeScheduler_FireRunsCallbacksInOrder(t *testing.T) {
	s := NewFakeScheduler()

	var order []int
	s.AfterFunc(time.Second, func() { order = append(order, 1) })
	s.AfterFunc(time.Millisecond, func() { order = append(order, 2) })

	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 2, s.Fire())
	assert.Equal(t, []int{1, 2}, order)
	assert.Zero(t, s.Pending())
}

func TestFakeScheduler_StopPreventsFiring(t *testing.T) {
	s := NewFakeScheduler()

	fired := false
	stop := s.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, stop())
	assert.Zero(t, s.Fire())
	assert.False(t, fired)

	// Already stopped; matches time.Timer.Stop semantics.
	assert.False(t, stop())
}

func TestFakeScheduler_StopAfterFire(t *testing.T) {
	s := NewFakeScheduler()

	stop := s.AfterFunc(time.Second, func() {})
	s.Fire()

	assert.False(t, stop())
}

func TestFakeScheduler_LastDelay(t *testing.T) {
	s := NewFakeScheduler()
	assert.Zero(t, s.LastDelay())

	s.AfterFunc(800*time.Millisecond, func() {})
	assert.Equal(t, 800*time.Millisecond, s.LastDelay())
}

func TestFakeScheduler_CallbackMayScheduleMore(t *testing.T) {
	s := NewFakeScheduler()

	s.AfterFunc(time.Second, func() {
		s.AfterFunc(time.Second, func() {})
	})

	assert.Equal(t, 1, s.Fire())
	assert.Equal(t, 1, s.Pending())
}
