package pus

import "fmt"

// Bit-packed field access for the sub-byte parameter encodings.  Bits are
// addressed big-endian: bit 0 is the most significant bit of the first
// byte, matching how the on-board software lays out packed housekeeping
// words.

// ExtractBits reads width bits from buf starting at bit offset bitStart,
// most significant bit first.  Width is capped at 64.
func ExtractBits(buf []byte, bitStart, width uint) uint64 {
	checkBitRange(buf, bitStart, width, "read")
	var acc uint64
	for i := uint(0); i < width; i++ {
		bit := bitStart + i
		acc <<= 1
		acc |= uint64(buf[bit/8]>>(7-bit%8)) & 1
	}
	return acc
}

// InsertBits writes the low width bits of v into buf starting at bit
// offset bitStart, most significant bit first.  Only the addressed bits
// are touched.
func InsertBits(buf []byte, bitStart, width uint, v uint64) {
	checkBitRange(buf, bitStart, width, "write")
	for i := uint(0); i < width; i++ {
		bit := bitStart + i
		mask := byte(1) << (7 - bit%8)
		if v>>(width-1-i)&1 != 0 {
			buf[bit/8] |= mask
		} else {
			buf[bit/8] &^= mask
		}
	}
}

// WriteBits writes a UInt3 value into buf at a bit offset.  This is the
// bit-level counterpart of WriteAligned for the one variant that is never
// byte-aligned.
func (v Value) WriteBits(buf []byte, bitStart uint) {
	if v.kind != KindUInt3 {
		panic(fmt.Sprintf("pus: bit-packed write of byte-aligned %s", v.kind))
	}
	InsertBits(buf, bitStart, 3, v.num&0x7)
}

// ReadBits reconstructs a UInt3 value from buf at a bit offset
func (v Value) ReadBits(buf []byte, bitStart uint) Value {
	if v.kind != KindUInt3 {
		panic(fmt.Sprintf("pus: bit-packed read of byte-aligned %s", v.kind))
	}
	return UInt3Value(uint8(ExtractBits(buf, bitStart, 3)))
}

func checkBitRange(buf []byte, bitStart, width uint, op string) {
	if width == 0 || width > 64 {
		panic(fmt.Sprintf("pus: bit field %s of unsupported width %d", op, width))
	}
	if bitStart+width > uint(len(buf))*8 {
		panic(fmt.Sprintf("pus: bit field %s of %d bits at bit %d overruns %d-byte buffer", op, width, bitStart, len(buf)))
	}
}
