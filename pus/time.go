package pus

import (
	"fmt"
	"math"
	"time"
)

// Epoch defines what an on-board time of 0 corresponds to
var Epoch = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// MicrosPerSecond is the sub-second resolution of CUCTime
const MicrosPerSecond = 1_000_000

// CUCWireLen is the encoded length of a CUC time: 4 bytes of coarse
// seconds followed by 2 bytes of fine fraction
const CUCWireLen = 6

// CUCResolutionMicro is the resolution of the 16-bit fine field in
// microseconds (1e6 / 65536).  Round trips through the wire format are
// accurate only to within this amount, so times coming back from the wire
// must be compared with WithinTolerance, never with ==.
const CUCResolutionMicro = float64(MicrosPerSecond) / 65536.0

const (
	cucWordBits = 48
	cucWordMask = uint64(1)<<cucWordBits - 1
	cucSignBit  = uint64(1) << (cucWordBits - 1)
)

// CUCTime is a CCSDS unsegmented time: whole seconds plus a microsecond
// count, either absolute (seconds since Epoch) or a relative delta.
// Both fields always carry the same sign.
type CUCTime struct {
	sec   int64
	micro int64
	delta bool
}

// NewCUCTime builds a normalized CUC time.  A microsecond count of
// magnitude >= 1e6 is carried into the seconds field, and the two fields
// are brought to a consistent sign.
func NewCUCTime(sec, micro int64, delta bool) CUCTime {
	sec += micro / MicrosPerSecond
	micro %= MicrosPerSecond
	if sec > 0 && micro < 0 {
		sec--
		micro += MicrosPerSecond
	} else if sec < 0 && micro > 0 {
		sec++
		micro -= MicrosPerSecond
	}
	return CUCTime{sec: sec, micro: micro, delta: delta}
}

// CUCFromMicros builds a CUC time from a count of whole microseconds
func CUCFromMicros(micros int64, delta bool) CUCTime {
	return NewCUCTime(0, micros, delta)
}

// Seconds returns the whole-second part
func (t CUCTime) Seconds() int64 { return t.sec }

// Micro returns the sub-second part in microseconds.  It carries the same
// sign as Seconds and its magnitude is always below 1e6.
func (t CUCTime) Micro() int64 { return t.micro }

// IsDelta reports whether the time is a relative delta rather than an
// absolute timestamp
func (t CUCTime) IsDelta() bool { return t.delta }

// Micros returns the time as a count of whole microseconds
func (t CUCTime) Micros() int64 {
	return t.sec*MicrosPerSecond + t.micro
}

// Time converts an absolute CUC time to a wall-clock time relative to Epoch
func (t CUCTime) Time() time.Time {
	return Epoch.Add(time.Duration(t.Micros()) * time.Microsecond)
}

func (t CUCTime) String() string {
	if t.delta {
		return fmt.Sprintf("%+d.%06ds", t.sec, abs64(t.micro))
	}
	return ITOSFormat(t.Time())
}

// EncodeCUC packs a CUC time into its 32-bit coarse and 16-bit fine wire
// fields.  The fine field approximates micro/1e6 as a fraction of 2^16.
// A negative time is two's-complemented as a single 48-bit quantity, not
// field by field; the split into coarse and fine happens afterwards.
func EncodeCUC(t CUCTime) (coarse uint32, fine uint16) {
	sec, micro := t.sec, t.micro
	neg := sec < 0 || micro < 0
	if neg {
		sec, micro = -sec, -micro
	}
	frac := uint64(math.Round(float64(micro) * 65536.0 / float64(MicrosPerSecond)))
	word := (uint64(sec)<<16 + frac) & cucWordMask
	if neg {
		word = (cucWordMask + 1 - word) & cucWordMask
	}
	return uint32(word >> 16), uint16(word)
}

// DecodeCUC rebuilds a CUC time from its wire fields.  The top bit of the
// reassembled 48-bit word marks a two's-complement negative time; the
// recovered sign is applied to both the seconds and the microseconds.
func DecodeCUC(coarse uint32, fine uint16, delta bool) CUCTime {
	word := uint64(coarse)<<16 | uint64(fine)
	neg := word&cucSignBit != 0
	if neg {
		word = (cucWordMask + 1 - word) & cucWordMask
	}
	sec := int64(word >> 16)
	micro := int64(math.Round(float64(word&0xFFFF) * float64(MicrosPerSecond) / 65536.0))
	if neg {
		sec, micro = -sec, -micro
	}
	return NewCUCTime(sec, micro, delta)
}

// WithinTolerance reports whether two CUC times agree to within eps
// microseconds.  The wire format's fine field resolves only ~15.26us, so
// this is the correct way to compare a time that has crossed the wire.
func WithinTolerance(eps int64, a, b CUCTime) bool {
	return a.sec == b.sec && a.delta == b.delta && abs64(a.micro-b.micro) < eps
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// ITOSFormat converts a time to a string similar to the way ITOS formats it
func ITOSFormat(t time.Time) string {
	return fmt.Sprintf("%02d-%03d-%02d:%02d:%02d.%03d", t.Year()-2000, t.YearDay(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000000)
}

//
// CDS time
//

const millisPerDay = 86_400_000

// CDSTime is a CCSDS day-segmented time: a day count, milliseconds of
// day and an optional microsecond-of-millisecond field.
type CDSTime struct {
	days     uint16
	milli    uint32
	micro    uint16
	hasMicro bool
}

// NewCDSTime builds a day-segmented time with a microsecond field.
// Out-of-range microsecond or millisecond counts are carried upwards
// rather than rejected.
func NewCDSTime(days uint16, milliOfDay uint32, micro uint32) CDSTime {
	t := carryCDS(days, uint64(milliOfDay)+uint64(micro/1000))
	t.micro = uint16(micro % 1000)
	t.hasMicro = true
	return t
}

// NewShortCDSTime builds a day-segmented time without the optional
// microsecond field
func NewShortCDSTime(days uint16, milliOfDay uint32) CDSTime {
	return carryCDS(days, uint64(milliOfDay))
}

func carryCDS(days uint16, milli uint64) CDSTime {
	return CDSTime{
		days:  days + uint16(milli/millisPerDay),
		milli: uint32(milli % millisPerDay),
	}
}

// Days returns the day count
func (t CDSTime) Days() uint16 { return t.days }

// MilliOfDay returns the milliseconds elapsed in the day; always below 86,400,000
func (t CDSTime) MilliOfDay() uint32 { return t.milli }

// Micro returns the microsecond-of-millisecond field and whether it is present
func (t CDSTime) Micro() (uint16, bool) { return t.micro, t.hasMicro }

// WireLen returns the encoded length: 6 bytes, or 8 when the microsecond
// field is present
func (t CDSTime) WireLen() int {
	if t.hasMicro {
		return 8
	}
	return 6
}

// EncodeCDS packs a CDS time: 2 bytes of days, 4 bytes of milliseconds of
// day and, when present, 2 bytes of microseconds, all big-endian.
func EncodeCDS(t CDSTime) []byte {
	b := make([]byte, t.WireLen())
	b[0] = byte(t.days >> 8)
	b[1] = byte(t.days)
	b[2] = byte(t.milli >> 24)
	b[3] = byte(t.milli >> 16)
	b[4] = byte(t.milli >> 8)
	b[5] = byte(t.milli)
	if t.hasMicro {
		b[6] = byte(t.micro >> 8)
		b[7] = byte(t.micro)
	}
	return b
}

// DecodeCDS unpacks a CDS time from 6 bytes, or 8 when hasMicro is set
func DecodeCDS(b []byte, hasMicro bool) (CDSTime, error) {
	want := 6
	if hasMicro {
		want = 8
	}
	if len(b) < want {
		return CDSTime{}, fmt.Errorf("short CDS time: need %d bytes, have %d", want, len(b))
	}
	days := uint16(b[0])<<8 | uint16(b[1])
	milli := uint32(b[2])<<24 | uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])
	if !hasMicro {
		return NewShortCDSTime(days, milli), nil
	}
	micro := uint32(b[6])<<8 | uint32(b[7])
	return NewCDSTime(days, milli, micro), nil
}
