//go:build !arm64

package mem

// CacheFlush is a no-op on architectures with coherent instruction caches.
func CacheFlush(buf []byte) {}
