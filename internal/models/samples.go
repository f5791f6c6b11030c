package models

import "encoding/binary"

// Widen converts len(dst) stored samples to floats: MSB-first bits, bytes
// or big-endian 16-bit words, signed when the descriptor says so.
func Widen[T float32 | float64](dst []T, raw []byte, depth BitDepth, signed bool) {
	switch {
	case depth == Bits1:
		for i := range dst {
			if raw[i>>3]&(0x80>>uint(i&7)) != 0 {
				dst[i] = 1
			} else {
				dst[i] = 0
			}
		}
	case depth == Bits8 && signed:
		for i := range dst {
			dst[i] = T(int8(raw[i]))
		}
	case depth == Bits8:
		for i := range dst {
			dst[i] = T(raw[i])
		}
	case signed:
		for i := range dst {
			dst[i] = T(int16(binary.BigEndian.Uint16(raw[2*i:])))
		}
	default:
		for i := range dst {
			dst[i] = T(binary.BigEndian.Uint16(raw[2*i:]))
		}
	}
}
