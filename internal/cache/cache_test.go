package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/temp-anomaly/internal/anomaly"
)

func TestHash(t *testing.T) {
	a := Hash([]byte("city,timestamp\n"))
	b := Hash([]byte("city,timestamp\n"))
	c := Hash([]byte("city,timestamp\r\n"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	// SHA-256 of the empty input.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(nil))
}

func TestAnalyses_GetPut(t *testing.T) {
	c := NewAnalyses(2)
	a := &anomaly.Analysis{Window: 30}

	_, ok := c.Get("h1")
	assert.False(t, ok)

	c.Put("h1", a)
	got, ok := c.Get("h1")
	require.True(t, ok)
	assert.Same(t, a, got)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestAnalyses_EvictsOldest(t *testing.T) {
	c := NewAnalyses(2)
	c.Put("h1", &anomaly.Analysis{})
	c.Put("h2", &anomaly.Analysis{})
	c.Put("h3", &anomaly.Analysis{})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("h1")
	assert.False(t, ok)
	_, ok = c.Get("h3")
	assert.True(t, ok)
}

func TestAnalyses_PutExistingDoesNotEvict(t *testing.T) {
	c := NewAnalyses(2)
	c.Put("h1", &anomaly.Analysis{Window: 1})
	c.Put("h2", &anomaly.Analysis{})
	c.Put("h1", &anomaly.Analysis{Window: 7})

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("h1")
	require.True(t, ok)
	assert.Equal(t, 7, got.Window)
}

func TestAnalyses_DefaultCapacity(t *testing.T) {
	c := NewAnalyses(0)
	for i := 0; i < DefaultCapacity+3; i++ {
		c.Put(Hash([]byte{byte(i)}), &anomaly.Analysis{})
	}
	assert.Equal(t, DefaultCapacity, c.Len())
}

func TestAnalyses_GetOrCompute_Once(t *testing.T) {
	c := NewAnalyses(4)
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := c.GetOrCompute("h", func() (*anomaly.Analysis, error) {
				calls.Add(1)
				return &anomaly.Analysis{Window: 30}, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 30, a.Window)
		}()
	}
	wg.Wait()

	_, err := c.GetOrCompute("h", func() (*anomaly.Analysis, error) {
		calls.Add(1)
		return nil, errors.New("should not run")
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyses_GetOrCompute_ErrorNotMemoized(t *testing.T) {
	c := NewAnalyses(4)

	_, err := c.GetOrCompute("bad", func() (*anomaly.Analysis, error) {
		return nil, errors.New("malformed")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
