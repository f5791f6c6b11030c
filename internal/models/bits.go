package models

// PackedLen is the number of bytes needed to hold n one-bit samples.
func PackedLen(n int) int {
	return (n + 7) / 8
}

// UnpackBits expands n MSB-first packed bits into booleans.
func UnpackBits(packed []byte, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = packed[i>>3]&(0x80>>uint(i&7)) != 0
	}
	return out
}

// PackBits packs booleans MSB-first into dst, which must hold
// PackedLen(len(bits)) bytes. Trailing bits of the last byte are cleared.
func PackBits(dst []byte, bits []bool) {
	for i := range dst[:PackedLen(len(bits))] {
		dst[i] = 0
	}
	for i, b := range bits {
		if b {
			dst[i>>3] |= 0x80 >> uint(i&7)
		}
	}
}
