package proxy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatorRoundRobin(t *testing.T) {
	t.Parallel()

	r, err := NewRotator([]string{"http://a:8080", " ", "socks5://b:1080"})
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	got := []string{r.Next(), r.Next(), r.Next()}
	assert.Equal(t, []string{"http://a:8080", "socks5://b:1080", "http://a:8080"}, got)
}

func TestRotatorEmpty(t *testing.T) {
	t.Parallel()

	r, err := NewRotator(nil)
	require.NoError(t, err)
	assert.Empty(t, r.Next())

	var nilRotator *Rotator
	assert.Empty(t, nilRotator.Next())
	assert.Zero(t, nilRotator.Len())
}

func TestRotatorRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := NewRotator([]string{"not a proxy"})
	require.Error(t, err)
}

func TestRotatorConcurrentUse(t *testing.T) {
	t.Parallel()

	r, err := NewRotator([]string{"http://a:1", "http://b:2"})
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts = map[string]int{}
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := r.Next()
			mu.Lock()
			counts[p]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counts["http://a:1"])
	assert.Equal(t, 50, counts["http://b:2"])
}
