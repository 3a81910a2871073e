//go:build !amd64 && !arm64

package arch

var current Relocator
