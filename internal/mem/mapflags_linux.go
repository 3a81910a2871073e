//go:build linux && amd64

package mem

import "golang.org/x/sys/unix"

// Keep the arena in the low 4GiB so relocated rel32 branches can still
// reach the text segment.
const mapFlags = unix.MAP_32BIT
