package pus

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sync"
)

// ParameterDictionary describes a list of packets, each containing a list
// of parameters
type ParameterDictionary struct {
	Packets []PacketDef

	indexOnce sync.Once
	byAPID    map[int][]*PacketDef
}

// PacketDef describes a single packet layout
type PacketDef struct {
	APID          int32
	ID            string `json:"Id"`
	Name          string
	Documentation string
	Parameters    []ParamDef
}

// ParamDef describes a single parameter, providing the information needed
// to extract its Value from a binary packet
type ParamDef struct {
	ID            string `json:"Id"`
	Name          string
	Documentation string

	PTC   PTC       `json:"ptc"`
	PFC   PFC       `json:"pfc"`
	Order ByteOrder `json:"byte_order"`

	ByteOffset uint `json:"byte_offset"`
	BitStart   uint `json:"bit_start"`
	ByteSize   uint `json:"byte_size"`
}

// Descriptor returns the default Value selected by the parameter's
// type/format pair.  Variable-length string and octet parameters are
// sized from the dictionary's byte_size so they can be extracted from a
// packet.
func (p ParamDef) Descriptor() Value {
	v := DefaultValue(p.Order, p.PTC, p.PFC)
	// dictionaries size variable text/octet parameters per packet
	if v.Kind() == KindString && p.ByteSize > 0 {
		return FixedStringValue(int(p.ByteSize), "")
	}
	if v.Kind() == KindOctet && p.ByteSize > 0 {
		return FixedOctetValue(int(p.ByteSize), nil)
	}
	return v
}

// Extract pulls the parameter's value out of a packet.  A packet too
// short for the parameter is a data error, not a programming error, so it
// is reported instead of faulting.
func (p ParamDef) Extract(pkt Packet) (Value, error) {
	desc := p.Descriptor()
	if desc.Kind() == KindUndefined {
		return desc, nil
	}
	if desc.Kind() == KindUInt3 {
		need := (p.ByteOffset*8 + p.BitStart + 3 + 7) / 8
		if uint(len(pkt)) < need {
			return UndefinedValue(), fmt.Errorf("short packet: id=%s byte_offset=%d packet_len=%d", p.ID, p.ByteOffset, len(pkt))
		}
		return desc.ReadBits(pkt, p.ByteOffset*8+p.BitStart), nil
	}
	need := p.ByteOffset + desc.BitWidth()/8
	if uint(len(pkt)) < need {
		return UndefinedValue(), fmt.Errorf("short packet: id=%s byte_offset=%d packet_len=%d", p.ID, p.ByteOffset, len(pkt))
	}
	return desc.ReadAligned(pkt, int(p.ByteOffset)), nil
}

// PacketsByAPID returns the packet definitions that decode packets with
// the given APID
func (d *ParameterDictionary) PacketsByAPID(apid int) ([]*PacketDef, bool) {
	d.indexOnce.Do(func() {
		d.byAPID = make(map[int][]*PacketDef)
		for i := range d.Packets {
			def := &d.Packets[i]
			d.byAPID[int(def.APID)] = append(d.byAPID[int(def.APID)], def)
		}
	})
	defs, ok := d.byAPID[apid]
	return defs, ok
}

// LoadDictionary reads a parameter dictionary from a JSON file, gzipped
// or not depending on the extension
func LoadDictionary(filename string) (*ParameterDictionary, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening dictionary %s: %v", filename, err)
	}
	defer f.Close()

	breader := bufio.NewReader(f)

	var reader io.Reader = breader
	if path.Ext(filename) == ".gz" {
		if reader, err = gzip.NewReader(breader); err != nil {
			return nil, fmt.Errorf("error opening gzipped file %s: %v", filename, err)
		}
	}

	var dictionary ParameterDictionary
	if err = json.NewDecoder(reader).Decode(&dictionary); err != nil {
		return nil, fmt.Errorf("error deserializing dictionary %s: %v", filename, err)
	}

	return &dictionary, nil
}
