package cities

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Next_Incrementing(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(3), c.Next())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	tickets := make(chan int64, goroutines*callsPerGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				tickets <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(tickets)

	seen := make(map[int64]bool)
	for ticket := range tickets {
		assert.False(t, seen[ticket], "ticket %d issued twice", ticket)
		seen[ticket] = true
	}
	assert.Len(t, seen, goroutines*callsPerGoroutine)
}
