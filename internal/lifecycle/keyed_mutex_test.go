package lifecycle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := newKeyedMutex()
	counter := map[string]int{}
	var wg sync.WaitGroup
	var mapMu sync.Mutex
	for i := 0; i < 100; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := k.Lock(key)
				defer unlock()
				mapMu.Lock()
				v := counter[key]
				mapMu.Unlock()
				mapMu.Lock()
				counter[key] = v + 1
				mapMu.Unlock()
			}(key)
		}
	}
	wg.Wait()
	assert.Equal(t, 100, counter["a"])
	assert.Equal(t, 100, counter["b"])
	assert.Empty(t, k.locks)
}
