package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationMinutes_Rounding(t *testing.T) {
	start := testNow
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{29 * time.Second, 0},
		{31 * time.Second, 1},
		{10 * time.Minute, 10},
		{24*time.Minute + 29*time.Second, 24},
		{24*time.Minute + 31*time.Second, 25},
		{25 * time.Minute, 25},
		{-5 * time.Minute, 0},
	}
	for _, tc := range cases {
		got := DurationMinutes(start, start.Add(tc.elapsed))
		assert.Equal(t, tc.want, got, "elapsed=%s", tc.elapsed)
	}
}

func TestStop_FreezesDuration(t *testing.T) {
	s := &Session{StartAt: testNow, Completed: false}
	s.Stop(testNow.Add(25 * time.Minute))
	assert.True(t, s.Completed)
	require.NotNil(t, s.EndAt)
	assert.Equal(t, testNow.Add(25*time.Minute), *s.EndAt)
	assert.Equal(t, 25, s.DurationMinutes)
}

func TestStop_AlreadyStoppedIsNoop(t *testing.T) {
	end := testNow.Add(10 * time.Minute)
	s := &Session{StartAt: testNow, EndAt: &end, DurationMinutes: 10, Completed: true}
	s.Stop(testNow.Add(2 * time.Hour))
	assert.Equal(t, 10, s.DurationMinutes, "stop is terminal, duration stays frozen")
	assert.Equal(t, end, *s.EndAt)
}

func TestRunning(t *testing.T) {
	s := &Session{StartAt: testNow}
	assert.True(t, s.Running())
	s.Stop(testNow.Add(time.Minute))
	assert.False(t, s.Running())
}
