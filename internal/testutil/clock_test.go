package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(time.Time{})
	assert.Equal(t, Epoch, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, Epoch.Add(90*time.Minute), c.Now())

	later := time.Date(2025, 1, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))
	c.Set(later)
	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, later.Equal(c.Now()))
}

func TestFixedClockConcurrent(t *testing.T) {
	c := NewFixedClock(Epoch)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, Epoch.Add(50*time.Second), c.Now())
}

func TestSeasonIsValid(t *testing.T) {
	sc := Season()
	require.NoError(t, sc.Validate())
	assert.Equal(t, Epoch, sc.Now)
}

func TestIDSequence(t *testing.T) {
	ids := NewIDSequence("req")
	assert.Equal(t, "req-1", ids.Next())
	assert.Equal(t, "req-2", ids.Next())

	assert.Equal(t, "test-1", NewIDSequence("").Next())
}
