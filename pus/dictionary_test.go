package pus

import (
	"testing"
)

func hkParamDefs() []ParamDef {
	return []ParamDef{
		{ID: "HK001", Name: "MODE", PTC: PTCSignedInteger, PFC: 4, ByteOffset: 15},
		{ID: "HK002", Name: "VOLTAGE", PTC: PTCSignedInteger, PFC: 12, ByteOffset: 16},
		{ID: "HK003", Name: "FLAGS", PTC: PTCUnsignedInteger, PFC: 0, ByteOffset: 18, BitStart: 2},
		{ID: "HK004", Name: "LABEL", PTC: PTCCharacterString, PFC: 4, ByteOffset: 19},
		{ID: "HK005", Name: "BOGUS", PTC: PTCDeduced, PFC: 7, ByteOffset: 0},
	}
}

// TestExtract decodes a hand-built housekeeping packet through the
// dictionary
func TestExtract(t *testing.T) {
	data := make([]byte, 8)
	Int8Value(-5).WriteAligned(data, 0)
	Int16Value(BigEndian, 0x0102).WriteAligned(data, 1)
	UInt3Value(6).WriteBits(data, 3*8+2)
	FixedStringValue(4, "ACS").WriteAligned(data, 4)
	pkt := buildPacket(324, 1, 3, 25, NewCUCTime(100, 0, false), data)

	defs := hkParamDefs()

	v, err := defs[0].Extract(pkt)
	if err != nil {
		t.Fatalf("extract MODE: %v", err)
	}
	if got := AsInteger[int64](v); got != -5 {
		t.Errorf("MODE: expected -5 got %d", got)
	}

	v, err = defs[1].Extract(pkt)
	if err != nil {
		t.Fatalf("extract VOLTAGE: %v", err)
	}
	if got := v.Uint64(); got != 0x0102 {
		t.Errorf("VOLTAGE: expected 0x0102 got %#x", got)
	}

	v, err = defs[2].Extract(pkt)
	if err != nil {
		t.Fatalf("extract FLAGS: %v", err)
	}
	if got := v.Uint64(); got != 6 {
		t.Errorf("FLAGS: expected 6 got %d", got)
	}

	v, err = defs[3].Extract(pkt)
	if err != nil {
		t.Fatalf("extract LABEL: %v", err)
	}
	if got := v.String(); got != "ACS " {
		t.Errorf("LABEL: expected %q got %q", "ACS ", got)
	}

	// unknown type/format pairs extract as the Undefined value, not an error
	v, err = defs[4].Extract(pkt)
	if err != nil {
		t.Fatalf("extract BOGUS: %v", err)
	}
	if v.Kind() != KindUndefined {
		t.Errorf("BOGUS: expected undefined, got %s", v.Kind())
	}
}

func TestExtractShortPacket(t *testing.T) {
	pkt := buildPacket(324, 1, 3, 25, NewCUCTime(100, 0, false), []byte{1})
	def := ParamDef{ID: "HK010", PTC: PTCReal, PFC: 2, ByteOffset: 40}
	if _, err := def.Extract(pkt); err == nil {
		t.Error("short packet should be a reported error, not a fault")
	}
}

func TestPacketsByAPID(t *testing.T) {
	d := &ParameterDictionary{
		Packets: []PacketDef{
			{APID: 324, Name: "HK_A", Parameters: hkParamDefs()},
			{APID: 330, Name: "HK_B"},
			{APID: 324, Name: "HK_A2"},
		},
	}
	defs, ok := d.PacketsByAPID(324)
	if !ok || len(defs) != 2 {
		t.Fatalf("expected 2 packet defs for apid 324, got %d", len(defs))
	}
	if defs[0].Name != "HK_A" || defs[1].Name != "HK_A2" {
		t.Errorf("wrong packet defs: %s %s", defs[0].Name, defs[1].Name)
	}
	if _, ok := d.PacketsByAPID(999); ok {
		t.Error("unknown apid should not resolve")
	}
}
