package pus

import (
	"bytes"
	"testing"
)

// buildPacket assembles a packet with a PUS secondary header around the
// given data field
func buildPacket(apid, seq, service, subservice int, stamp CUCTime, data []byte) Packet {
	datalen := SecondaryHeaderLength + len(data)
	buf := make([]byte, PrimaryHeaderLength+datalen)
	buf[0] = byte(((apid >> 8) & 0x7) | 0x8)
	buf[1] = byte(apid & 0xFF)
	buf[2] = byte(seq>>8) | 192
	buf[3] = byte(seq & 0xFF)
	buf[4] = byte((datalen - 1) >> 8)
	buf[5] = byte((datalen - 1) & 0xFF)
	buf[6] = 0x10 // PUS version
	buf[7] = byte(service)
	buf[8] = byte(subservice)
	TimeValue(stamp).WriteAligned(buf, 9)
	copy(buf[PrimaryHeaderLength+SecondaryHeaderLength:], data)
	return buf
}

func TestPacketHeaderFields(t *testing.T) {
	stamp := NewCUCTime(1234, 500_000, false)
	p := buildPacket(324, 17, 3, 25, stamp, []byte{1, 2, 3, 4})

	if got := p.APID(); got != 324 {
		t.Errorf("apid: expected 324 got %d", got)
	}
	if got := p.SequenceCount(); got != 17 {
		t.Errorf("sequence count: expected 17 got %d", got)
	}
	if got := p.Length(); got != len(p)-7 {
		t.Errorf("length field: expected %d got %d", len(p)-7, got)
	}
	if !p.HasSecondaryHeader() {
		t.Error("secondary header flag missing")
	}
	if got := p.Service(); got != 3 {
		t.Errorf("service: expected 3 got %d", got)
	}
	if got := p.SubService(); got != 25 {
		t.Errorf("subservice: expected 25 got %d", got)
	}
	if got := p.Time(); !WithinTolerance(16, stamp, got) {
		t.Errorf("timestamp: expected %v got %v", stamp, got)
	}
}

func TestPacketWithoutSecondaryHeader(t *testing.T) {
	p := Packet{0x01, 0x44, 0xC0, 0x00, 0x00, 0x00, 0xAA}
	if p.HasSecondaryHeader() {
		t.Error("secondary header flag should be clear")
	}
	if p.Service() != 0 || p.SubService() != 0 {
		t.Error("headerless packet should report service 0")
	}
	if got := p.Time(); got.Seconds() != 0 || got.Micro() != 0 {
		t.Errorf("headerless packet should report the zero time, got %v", got)
	}
}

// TestReadPacketsStream splits a concatenated byte stream back into
// packets
func TestReadPacketsStream(t *testing.T) {
	stamp := NewCUCTime(10, 0, false)
	p1 := buildPacket(100, 1, 3, 25, stamp, []byte{1, 2, 3})
	p2 := buildPacket(200, 2, 5, 1, stamp, bytes.Repeat([]byte{0xAB}, 40))

	stream := bytes.NewBuffer(nil)
	stream.Write(p1)
	stream.Write(p2)

	var apids []int
	var lengths []int
	err := ReadPacketsCallback(stream, func(p *Packet) {
		apids = append(apids, p.APID())
		lengths = append(lengths, p.Length())
	})
	if err != nil {
		t.Fatalf("stream read failed: %v", err)
	}
	if len(apids) != 2 || apids[0] != 100 || apids[1] != 200 {
		t.Errorf("expected apids [100 200], got %v", apids)
	}
	if lengths[0] != p1.Length() || lengths[1] != p2.Length() {
		t.Errorf("lengths mismatch: %v", lengths)
	}
}

func TestReadPacketsTruncated(t *testing.T) {
	p := buildPacket(100, 1, 3, 25, NewCUCTime(0, 0, false), []byte{1, 2, 3})
	stream := bytes.NewBuffer(p[:len(p)-2])
	err := ReadPacketsCallback(stream, func(p *Packet) {})
	if err == nil {
		t.Error("truncated stream should be reported")
	}
}
