// Package guard bounds the memory held by the process-wide caches.
// Caches register themselves; a background sweep clears any cache whose
// estimated size crosses the cache limit and terminates the process
// when the resident size crosses the hard limit.
package guard

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yaoapp/kun/log"
)

// SizeLimit the per-cache size limit (1 GiB)
const SizeLimit = int64(1) << 30

// MemoryLimit the process resident size limit (2 GiB)
const MemoryLimit = int64(2) << 30

// Cache a tracked cache. SizeHint is an estimate in bytes; Clear must
// drop every entry.
type Cache interface {
	Name() string
	SizeHint() int64
	Clear()
}

var mu sync.Mutex
var tracked = map[string]Cache{}
var exit = func(code int) { os.Exit(code) }

// Register track a cache
func Register(cache Cache) {
	mu.Lock()
	defer mu.Unlock()
	tracked[cache.Name()] = cache
}

// Unregister stop tracking a cache
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(tracked, name)
}

// Reset drop all tracked caches (for tests)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	tracked = map[string]Cache{}
}

// Start run the guard loop until the context is cancelled
func Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				Sweep()
			}
		}
	}()
}

// Sweep check every tracked cache and the process resident size.
// Returns the number of caches cleared.
func Sweep() int {
	mu.Lock()
	caches := make([]Cache, 0, len(tracked))
	for _, cache := range tracked {
		caches = append(caches, cache)
	}
	mu.Unlock()

	cleared := 0
	for _, cache := range caches {
		size := cache.SizeHint()
		if size >= SizeLimit {
			log.Warn("guard: cache %s holds %d bytes, clearing", cache.Name(), size)
			cache.Clear()
			cleared++
		}
	}

	if resident := rss(); resident >= MemoryLimit {
		log.Error("guard: resident size %d exceeds limit %d, terminating", resident, MemoryLimit)
		exit(1)
	}
	return cleared
}

// rss returns the process resident size in bytes. Reads
// /proc/self/statm on Linux, falls back to the runtime sys estimate.
func rss() int64 {
	if data, err := os.ReadFile("/proc/self/statm"); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) > 1 {
			if pages, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				return pages * int64(os.Getpagesize())
			}
		}
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.Sys)
}
