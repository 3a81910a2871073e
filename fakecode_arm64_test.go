package graft

import "encoding/binary"

// writeFakeCode fills buf with a decodable function body: a MOVZ, NOP
// filler and a RET.
func writeFakeCode(buf []byte) {
	words := []uint32{
		0xd2800540, // MOVZ X0, #42
		0xd28000e1, // MOVZ X1, #7
	}
	i := 0
	for _, w := range words {
		binary.LittleEndian.PutUint32(buf[i:], w)
		i += 4
	}
	for ; i+8 <= len(buf); i += 4 {
		binary.LittleEndian.PutUint32(buf[i:], 0xd503201f) // NOP
	}
	binary.LittleEndian.PutUint32(buf[i:], 0xd65f03c0) // RET
}
