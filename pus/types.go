package pus

import "encoding/binary"

// PTC is a PUS parameter type code.  Together with a PFC it selects the
// encoding and width of an on-board parameter.
type PTC uint8

// Parameter type codes from the PUS ground/space interface standard
const (
	PTCBoolean         PTC = 1
	PTCEnumerated      PTC = 2
	PTCUnsignedInteger PTC = 3
	PTCSignedInteger   PTC = 4
	PTCReal            PTC = 5
	PTCBitString       PTC = 6
	PTCOctetString     PTC = 7
	PTCCharacterString PTC = 8
	PTCAbsoluteTime    PTC = 9
	PTCRelativeTime    PTC = 10
	PTCDeduced         PTC = 11
)

func (p PTC) String() string {
	switch p {
	default:
		return "***"
	case PTCBoolean:
		return "boolean"
	case PTCEnumerated:
		return "enumerated"
	case PTCUnsignedInteger:
		return "unsigned integer"
	case PTCSignedInteger:
		return "signed integer"
	case PTCReal:
		return "real"
	case PTCBitString:
		return "bit string"
	case PTCOctetString:
		return "octet string"
	case PTCCharacterString:
		return "character string"
	case PTCAbsoluteTime:
		return "absolute time"
	case PTCRelativeTime:
		return "relative time"
	case PTCDeduced:
		return "deduced"
	}
}

// PFC is a PUS parameter format code.  Its meaning depends on the PTC it is
// paired with; for string and octet parameters a non-zero PFC is the fixed
// width in bytes.
type PFC uint8

// ByteOrder selects the byte layout of multi-byte numeric fields.  It is
// carried inside each Value rather than assumed from context.
type ByteOrder uint8

// Byte orders
const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (b ByteOrder) String() string {
	switch b {
	default:
		return "***"
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	}
}

// byteOrder returns the matching encoding/binary layout
func (b ByteOrder) byteOrder() binary.ByteOrder {
	if b == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
