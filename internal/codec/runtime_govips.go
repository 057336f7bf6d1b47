//go:build govips && cgo

package codec

import (
	"errors"
	"runtime"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

// libvips cannot be initialised again once it has been shut down, so the
// runtime is reference counted and stays down after the last release.
var vipsRuntime struct {
	mu      sync.Mutex
	refs    int
	stopped bool
}

var errVipsStopped = errors.New("libvips runtime already shut down")

// Startup acquires the libvips runtime. Every successful call must be
// paired with Shutdown.
func Startup() error {
	vipsRuntime.mu.Lock()
	defer vipsRuntime.mu.Unlock()

	if vipsRuntime.stopped {
		return errVipsStopped
	}
	if vipsRuntime.refs == 0 {
		vips.LoggingSettings(nil, vips.LogLevelWarning)
		vips.Startup(&vips.Config{
			ConcurrencyLevel: runtime.GOMAXPROCS(0),
			MaxCacheFiles:    0,
			MaxCacheMem:      128 << 20,
			MaxCacheSize:     100,
		})
	}
	vipsRuntime.refs++
	return nil
}

// Shutdown releases one Startup. libvips stops with the last release.
func Shutdown() {
	vipsRuntime.mu.Lock()
	defer vipsRuntime.mu.Unlock()

	if vipsRuntime.refs == 0 {
		return
	}
	vipsRuntime.refs--
	if vipsRuntime.refs == 0 {
		vips.Shutdown()
		vipsRuntime.stopped = true
	}
}

func newBackend() backend {
	return govipsBackend{}
}
