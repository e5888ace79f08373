package pus

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind tags the variant held by a Value.  The set is closed: every
// operation on Value switches exhaustively over these tags.
type Kind uint8

// Value variants
const (
	KindUndefined Kind = iota
	KindInt8
	KindInt16
	KindUInt3
	KindDouble
	KindString
	KindFixedString
	KindOctet
	KindFixedOctet
	KindCUCTime
)

func (k Kind) String() string {
	switch k {
	default:
		return "***"
	case KindUndefined:
		return "undefined"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindUInt3:
		return "uint3"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindFixedString:
		return "fixed string"
	case KindOctet:
		return "octet"
	case KindFixedOctet:
		return "fixed octet"
	case KindCUCTime:
		return "cuc time"
	}
}

// A Value is the runtime representation of a single on-board parameter.
// It is immutable: setters return a new Value and the aligned writer only
// touches the caller's buffer.  Numeric variants carry their own byte
// order; fixed-width text and octet variants always hold exactly their
// declared width.
type Value struct {
	kind  Kind
	order ByteOrder
	width int    // declared width in bytes, fixed variants only
	num   uint64 // integer magnitude or float bits
	data  []byte // text and octet payload
	t     CUCTime
}

//
// Constructors
//

// Int8Value builds a signed 8-bit value
func Int8Value(v int8) Value {
	return Value{kind: KindInt8, num: uint64(uint8(v))}
}

// Int16Value builds a 16-bit value with an explicit byte order
func Int16Value(order ByteOrder, v uint16) Value {
	return Value{kind: KindInt16, order: order, num: uint64(v)}
}

// UInt3Value builds a 3-bit value.  The magnitude is masked to 3 bits
// here and on every later write.
func UInt3Value(v uint8) Value {
	return Value{kind: KindUInt3, num: uint64(v & 0x7)}
}

// DoubleValue builds a 64-bit float value with an explicit byte order
func DoubleValue(order ByteOrder, v float64) Value {
	return Value{kind: KindDouble, order: order, num: math.Float64bits(v)}
}

// StringValue builds a variable-length text value
func StringValue(s string) Value {
	return Value{kind: KindString, data: []byte(s)}
}

// FixedStringValue builds a text value of exactly width bytes.  Shorter
// text is right-padded with spaces, longer text keeps its leading bytes.
func FixedStringValue(width int, s string) Value {
	return Value{kind: KindFixedString, width: width, data: padRight([]byte(s), width, ' ')}
}

// OctetValue builds a variable-length octet value
func OctetValue(b []byte) Value {
	return Value{kind: KindOctet, data: cloneBytes(b)}
}

// FixedOctetValue builds an octet value of exactly width bytes.  Shorter
// input is right-padded with zero bytes, longer input keeps its leading
// bytes.
func FixedOctetValue(width int, b []byte) Value {
	return Value{kind: KindFixedOctet, width: width, data: padRight(b, width, 0)}
}

// TimeValue builds a CUC time value
func TimeValue(t CUCTime) Value {
	return Value{kind: KindCUCTime, t: t}
}

// UndefinedValue is the sentinel for unknown or unsupported type/format
// pairs.  It is a value, not an error.
func UndefinedValue() Value {
	return Value{kind: KindUndefined}
}

// DefaultValue maps a parameter type descriptor to the zero value of the
// matching variant.  Unrecognized PTC/PFC pairs yield the Undefined value;
// callers must treat that as data, not as a failure.
func DefaultValue(order ByteOrder, ptc PTC, pfc PFC) Value {
	switch ptc {
	case PTCUnsignedInteger:
		if pfc == 0 {
			return UInt3Value(0)
		}
	case PTCSignedInteger:
		switch pfc {
		case 4:
			return Int8Value(0)
		case 12:
			return Int16Value(order, 0)
		}
	case PTCReal:
		if pfc == 2 {
			return DoubleValue(order, 0)
		}
	case PTCOctetString:
		if pfc == 0 {
			return OctetValue(nil)
		}
		return FixedOctetValue(int(pfc), nil)
	case PTCCharacterString:
		if pfc == 0 {
			return StringValue("")
		}
		return FixedStringValue(int(pfc), "")
	case PTCAbsoluteTime:
		if pfc == 18 {
			return TimeValue(NewCUCTime(0, 0, false))
		}
	case PTCRelativeTime:
		if pfc == 18 {
			return TimeValue(NewCUCTime(0, 0, true))
		}
	}
	return UndefinedValue()
}

//
// Inspection
//

// Kind returns the variant tag
func (v Value) Kind() Kind { return v.kind }

// Order returns the byte order carried by the value.  Only meaningful for
// the multi-byte numeric variants.
func (v Value) Order() ByteOrder { return v.order }

// Width returns the declared width in bytes of a fixed-width variant
func (v Value) Width() int { return v.width }

// Bytes returns a copy of a text or octet payload
func (v Value) Bytes() []byte { return cloneBytes(v.data) }

// Time returns the CUC time payload
func (v Value) Time() CUCTime { return v.t }

// Double returns the float payload
func (v Value) Double() float64 { return math.Float64frombits(v.num) }

// BitWidth returns the exact bit length of the value's wire
// representation.  UInt3 is the one sub-byte width; Undefined has none.
func (v Value) BitWidth() uint {
	switch v.kind {
	case KindInt8:
		return 8
	case KindInt16:
		return 16
	case KindUInt3:
		return 3
	case KindDouble:
		return 64
	case KindString, KindOctet:
		return uint(len(v.data)) * 8
	case KindFixedString, KindFixedOctet:
		return uint(v.width) * 8
	case KindCUCTime:
		return CUCWireLen * 8
	}
	return 0
}

// WireConvertible reports whether the value can be read and written as a
// plain integer magnitude.  These are the variants that participate in raw
// numeric calibration pipelines.
func (v Value) WireConvertible() bool {
	switch v.kind {
	case KindInt8, KindInt16, KindUInt3, KindDouble, KindCUCTime:
		return true
	}
	return false
}

// String renders the value for display.  Text that is not valid UTF-8 is
// reported with the offending bytes replaced rather than failing.
func (v Value) String() string {
	switch v.kind {
	case KindInt8:
		return strconv.FormatInt(int64(int8(v.num)), 10)
	case KindInt16:
		return strconv.FormatUint(v.num&0xFFFF, 10)
	case KindUInt3:
		return strconv.FormatUint(v.num&0x7, 10)
	case KindDouble:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case KindString, KindFixedString:
		if utf8.Valid(v.data) {
			return string(v.data)
		}
		return strings.ToValidUTF8(string(v.data), "�")
	case KindOctet, KindFixedOctet:
		return hex.EncodeToString(v.data)
	case KindCUCTime:
		return v.t.String()
	}
	return "undefined"
}

//
// Integer views
//

// Uint64 reads the value as an unsigned integer, zero-extending from the
// variant's wire width.  Text that does not parse as a decimal literal
// reads as 0; that lenient contract is deliberate and load-bearing for
// packet decoding, do not tighten it.
func (v Value) Uint64() uint64 {
	switch v.kind {
	case KindInt8:
		return v.num & 0xFF
	case KindInt16:
		return v.num & 0xFFFF
	case KindUInt3:
		return v.num & 0x7
	case KindDouble:
		return uint64(int64(math.Round(v.Double())))
	case KindString, KindFixedString:
		return uint64(parseDecimal(v.data))
	case KindOctet, KindFixedOctet:
		var acc uint64
		for _, b := range v.data {
			acc = acc<<8 | uint64(b)
		}
		return acc
	case KindCUCTime:
		return uint64(v.t.Micros())
	}
	return 0
}

// Int64 reads the value as a signed integer, sign-extending from the
// variant's wire width
func (v Value) Int64() int64 {
	switch v.kind {
	case KindInt8:
		return int64(int8(v.num))
	case KindInt16:
		return int64(int16(v.num))
	case KindDouble:
		return int64(math.Round(v.Double()))
	case KindString, KindFixedString:
		return parseDecimal(v.data)
	}
	return int64(v.Uint64())
}

// BigInt reads the value as an arbitrary-precision integer.  Octet
// payloads are interpreted as a big-endian unsigned magnitude of any
// length; the fixed-width numeric variants sign-extend as Int64 does.
func (v Value) BigInt() *big.Int {
	switch v.kind {
	case KindOctet, KindFixedOctet:
		return new(big.Int).SetBytes(v.data)
	case KindString, KindFixedString:
		n, ok := new(big.Int).SetString(strings.TrimSpace(string(v.data)), 10)
		if !ok {
			return new(big.Int)
		}
		return n
	}
	return big.NewInt(v.Int64())
}

// Integer is the constraint on AsInteger's target type
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// AsInteger reads a value as any fixed-width integer type.  The variant's
// magnitude is widened with the signedness of T and then truncated to T's
// width, so out-of-range reads wrap rather than saturate.
func AsInteger[T Integer](v Value) T {
	var zero T
	if zero-1 < zero {
		return T(v.Int64())
	}
	return T(v.Uint64())
}

// SetInt64 returns a new value of the same variant with the magnitude
// replaced by n.  Byte order, declared widths and the time delta flag are
// kept from the receiver.  Setting an Undefined value is a no-op.
func (v Value) SetInt64(n int64) Value {
	switch v.kind {
	case KindInt8:
		return Value{kind: KindInt8, num: uint64(uint8(n))}
	case KindInt16:
		return Value{kind: KindInt16, order: v.order, num: uint64(uint16(n))}
	case KindUInt3:
		return Value{kind: KindUInt3, num: uint64(n) & 0x7}
	case KindDouble:
		return DoubleValue(v.order, float64(n))
	case KindString:
		return StringValue(strconv.FormatInt(n, 10))
	case KindFixedString:
		return FixedStringValue(v.width, strconv.FormatInt(n, 10))
	case KindOctet:
		return Value{kind: KindOctet, data: twosComplementBytes(big.NewInt(n))}
	case KindFixedOctet:
		return FixedOctetValue(v.width, new(big.Int).Abs(big.NewInt(n)).Bytes())
	case KindCUCTime:
		return TimeValue(CUCFromMicros(n, v.t.delta))
	}
	return v
}

// SetBigInt is SetInt64 for arbitrary-precision magnitudes.  Fixed-width
// numeric variants keep the low bits of n.
func (v Value) SetBigInt(n *big.Int) Value {
	switch v.kind {
	case KindString:
		return StringValue(n.String())
	case KindFixedString:
		return FixedStringValue(v.width, n.String())
	case KindOctet:
		return Value{kind: KindOctet, data: twosComplementBytes(n)}
	case KindFixedOctet:
		return FixedOctetValue(v.width, new(big.Int).Abs(n).Bytes())
	}
	return v.SetInt64(int64(bigLow64(n)))
}

//
// Wire layout
//

// WriteAligned writes a byte-aligned value into buf at a byte offset.
// The value's own byte order applies to the numeric variants and CUC times
// go out as their 48-bit wire word.  A buffer too short for the value is a
// programming error and faults; it is never silently truncated.  UInt3 is
// not byte-aligned and must go through InsertBits instead.
func (v Value) WriteAligned(buf []byte, off int) {
	if v.kind == KindUInt3 {
		panic("pus: uint3 is not byte-aligned, use InsertBits")
	}
	n := int(v.BitWidth()) / 8
	if off < 0 || off+n > len(buf) {
		panic(fmt.Sprintf("pus: aligned write of %s (%d bytes) at offset %d overruns %d-byte buffer", v.kind, n, off, len(buf)))
	}
	switch v.kind {
	case KindInt8:
		buf[off] = byte(v.num)
	case KindInt16:
		v.order.byteOrder().PutUint16(buf[off:], uint16(v.num))
	case KindDouble:
		v.order.byteOrder().PutUint64(buf[off:], v.num)
	case KindString, KindFixedString, KindOctet, KindFixedOctet:
		copy(buf[off:], v.data)
	case KindCUCTime:
		coarse, fine := EncodeCUC(v.t)
		buf[off] = byte(coarse >> 24)
		buf[off+1] = byte(coarse >> 16)
		buf[off+2] = byte(coarse >> 8)
		buf[off+3] = byte(coarse)
		buf[off+4] = byte(fine >> 8)
		buf[off+5] = byte(fine)
	}
}

// Append appends the value's wire representation to dst and returns the
// extended slice, for callers assembling a packet incrementally.  Like
// WriteAligned it handles the byte-aligned variants only.
func (v Value) Append(dst []byte) []byte {
	off := len(dst)
	dst = append(dst, make([]byte, int(v.BitWidth())/8)...)
	v.WriteAligned(dst, off)
	return dst
}

// ReadAligned reconstructs a value from buf at a byte offset.  The
// receiver acts as the descriptor: its kind, byte order, widths and delta
// flag select the layout, its magnitude is ignored.  Variable-length text
// and octet variants read as many bytes as the receiver currently holds.
func (v Value) ReadAligned(buf []byte, off int) Value {
	if v.kind == KindUInt3 {
		panic("pus: uint3 is not byte-aligned, use ExtractBits")
	}
	n := int(v.BitWidth()) / 8
	if off < 0 || off+n > len(buf) {
		panic(fmt.Sprintf("pus: aligned read of %s (%d bytes) at offset %d overruns %d-byte buffer", v.kind, n, off, len(buf)))
	}
	switch v.kind {
	case KindInt8:
		return Int8Value(int8(buf[off]))
	case KindInt16:
		return Int16Value(v.order, v.order.byteOrder().Uint16(buf[off:]))
	case KindDouble:
		return DoubleValue(v.order, math.Float64frombits(v.order.byteOrder().Uint64(buf[off:])))
	case KindString:
		return StringValue(string(buf[off : off+n]))
	case KindFixedString:
		return FixedStringValue(v.width, string(buf[off:off+n]))
	case KindOctet:
		return OctetValue(buf[off : off+n])
	case KindFixedOctet:
		return FixedOctetValue(v.width, buf[off:off+n])
	case KindCUCTime:
		coarse := uint32(buf[off])<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3])
		fine := uint16(buf[off+4])<<8 | uint16(buf[off+5])
		return TimeValue(DecodeCUC(coarse, fine, v.t.delta))
	}
	return UndefinedValue()
}

// Equal reports exact equality of two values.  Time values generally do
// not survive the wire exactly; compare those with WithinTolerance.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.order == o.order && v.width == o.width &&
		v.num == o.num && v.t == o.t && bytes.Equal(v.data, o.data)
}

//
// Helpers
//

// parseDecimal reads a decimal literal, yielding 0 on any parse failure.
// Fixed strings carry their space padding, so surrounding blanks are
// ignored.
func parseDecimal(b []byte) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// twosComplementBytes renders n as the minimal big-endian two's-complement
// byte sequence: non-negative values keep a clear top bit, negative values
// a set one.
func twosComplementBytes(n *big.Int) []byte {
	if n.Sign() >= 0 {
		b := n.Bytes()
		if len(b) == 0 {
			return []byte{0}
		}
		if b[0]&0x80 != 0 {
			return append([]byte{0}, b...)
		}
		return b
	}
	// -2^(m-1) fits in m bits, every other negative needs a sign bit on top
	bits := n.BitLen()
	if new(big.Int).Lsh(big.NewInt(-1), uint(bits-1)).Cmp(n) != 0 {
		bits++
	}
	nbytes := (bits + 7) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(nbytes)*8)
	b := new(big.Int).Add(mod, n).Bytes()
	return padLeft(b, nbytes)
}

// bigLow64 truncates n to its low 64 bits, two's complement for negatives
func bigLow64(n *big.Int) uint64 {
	return new(big.Int).And(n, new(big.Int).SetUint64(math.MaxUint64)).Uint64()
}

func padRight(b []byte, width int, fill byte) []byte {
	out := make([]byte, width)
	copy(out, b)
	for i := len(b); i < width; i++ {
		out[i] = fill
	}
	return out
}

func padLeft(b []byte, width int) []byte {
	if len(b) >= width {
		return b
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
