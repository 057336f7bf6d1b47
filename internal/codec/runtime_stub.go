//go:build !govips || !cgo

package codec

// Startup is a no-op for the native backend, which has no runtime to manage.
func Startup() error { return nil }

func Shutdown() {}

func newBackend() backend {
	return nativeBackend{}
}
