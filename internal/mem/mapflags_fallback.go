//go:build !(linux && amd64)

package mem

// Other platforms have no MAP_32BIT equivalent. We have to trust the OS to
// give us an address close enough to the text segment.
const mapFlags = 0
