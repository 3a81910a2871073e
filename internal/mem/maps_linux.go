package mem

import (
	"bufio"
	"bytes"
	"os"
	"strconv"
	"strings"
)

// queryProt reads the current protection of the page containing addr from
// /proc/self/maps.
func queryProt(addr uintptr) (Prot, bool) {
	data, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		return 0, false
	}

	_, _, perms, ok := findMapping(data, addr)
	if !ok {
		return 0, false
	}

	switch {
	case strings.Contains(perms, "w") && strings.Contains(perms, "x"):
		return ProtRWX, true
	case strings.Contains(perms, "x"):
		return ProtRX, true
	case strings.Contains(perms, "w"):
		return ProtRW, true
	default:
		return ProtRead, true
	}
}

// checkMapped reports whether [addr, addr+n) lies inside a single mapping.
func checkMapped(addr uintptr, n int) error {
	data, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		// Can't tell, assume the caller knows what it's doing.
		return nil
	}

	_, end, _, ok := findMapping(data, addr)
	if !ok {
		return ErrUnmapped
	}
	if addr+uintptr(n) > end {
		// The write may still be fine if the next mapping is
		// adjacent, but a buffer that straddles mappings is almost
		// certainly a caller bug.
		if _, _, _, ok := findMapping(data, addr+uintptr(n)-1); !ok {
			return ErrCrossesUnmapped
		}
	}
	return nil
}

// mappedLen clamps max to the end of the mapping containing addr.
func mappedLen(addr uintptr, max int) (int, error) {
	data, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		return max, nil
	}

	_, end, _, ok := findMapping(data, addr)
	if !ok {
		return 0, ErrUnmapped
	}
	if n := int(end - addr); n < max {
		return n, nil
	}
	return max, nil
}

func findMapping(maps []byte, addr uintptr) (start, end uintptr, perms string, ok bool) {
	sc := bufio.NewScanner(bytes.NewReader(maps))
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		lo, hi, err := parseRange(fields[0])
		if err != nil {
			continue
		}
		if addr >= lo && addr < hi {
			return lo, hi, fields[1], true
		}
	}
	return 0, 0, "", false
}

func parseRange(s string) (uintptr, uintptr, error) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, strconv.ErrSyntax
	}
	loN, err := strconv.ParseUint(lo, 16, 64)
	if err != nil {
		return 0, 0, err
	}
	hiN, err := strconv.ParseUint(hi, 16, 64)
	if err != nil {
		return 0, 0, err
	}
	return uintptr(loN), uintptr(hiN), nil
}
