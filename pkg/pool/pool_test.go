package pool

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelize(t *testing.T) {
	for _, p := range []*Pool{nil, NewPool(0), NewPool(3)} {
		var calls int64
		results := Map(p, 100, func(i int) int {
			atomic.AddInt64(&calls, 1)
			return i * i
		})
		require.Len(t, results, 100)
		for i, r := range results {
			assert.Equal(t, i*i, r)
		}
		assert.EqualValues(t, 100, calls)
		p.TearDown()
		p.TearDown()
	}
}

func TestWorkers(t *testing.T) {
	var p *Pool
	assert.Equal(t, 1, p.Workers())
	p = NewPool(4)
	defer p.TearDown()
	assert.Equal(t, 4, p.Workers())
}

func TestLockedReader(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	r := NewLockedReader(bytes.NewReader(data))

	var mu sync.Mutex
	seen := make(map[byte]int)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 8)
			for {
				if _, err := io.ReadFull(r, buf); err != nil {
					return
				}
				mu.Lock()
				for _, b := range buf {
					seen[b]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	for b := 0; b < 256; b++ {
		assert.Equal(t, 4, seen[byte(b)])
	}
}
