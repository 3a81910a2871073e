package graft

// writeFakeCode fills buf with a decodable function body: two MOV
// immediates, NOP filler and a RET.
func writeFakeCode(buf []byte) {
	code := []byte{
		0x48, 0xc7, 0xc0, 0x2a, 0x00, 0x00, 0x00, // MOV RAX, 42
		0x48, 0xc7, 0xc3, 0x07, 0x00, 0x00, 0x00, // MOV RBX, 7
	}
	n := copy(buf, code)
	for i := n; i < len(buf)-1; i++ {
		buf[i] = 0x90 // NOP
	}
	buf[len(buf)-1] = 0xc3 // RET
}
