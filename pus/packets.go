package pus

import (
	"fmt"
	"io"
	"os"
)

// A Packet is a byte slice holding one space packet
type Packet []byte

// PrimaryHeaderLength is the fixed CCSDS primary header length
const PrimaryHeaderLength = 6

// SecondaryHeaderLength is the PUS secondary header carried by telemetry
// packets: one flag/version byte, service type, service subtype, then the
// CUC timestamp
const SecondaryHeaderLength = 3 + CUCWireLen

// APID returns the application process ID from the primary header
func (packet Packet) APID() int {
	return (int(0x7&packet[0]) << 8) + int(packet[1])
}

// HasSecondaryHeader reports whether the secondary header flag is set in
// the primary header
func (packet Packet) HasSecondaryHeader() bool {
	return packet[0]&0x8 != 0
}

// SequenceCount returns the packet sequence counter from the primary header
func (packet Packet) SequenceCount() int {
	return (0x3FFF & (int(packet[2]) << 8)) | int(packet[3])
}

// Length returns the CCSDS packet length field.  This is the data field
// length - 1, or the total packet length - 7.
func (packet Packet) Length() int {
	return (int(packet[4]) << 8) + int(packet[5])
}

// Service returns the PUS service type from the secondary header, or 0
// when the packet has none
func (packet Packet) Service() int {
	if !packet.HasSecondaryHeader() {
		return 0
	}
	return int(packet[7])
}

// SubService returns the PUS service subtype from the secondary header,
// or 0 when the packet has none
func (packet Packet) SubService() int {
	if !packet.HasSecondaryHeader() {
		return 0
	}
	return int(packet[8])
}

// Time returns the packet timestamp decoded from the secondary header.
// Packets without a secondary header report the zero time.
func (packet Packet) Time() CUCTime {
	if !packet.HasSecondaryHeader() {
		return NewCUCTime(0, 0, false)
	}
	o := PrimaryHeaderLength + 3
	coarse := uint32(packet[o])<<24 | uint32(packet[o+1])<<16 | uint32(packet[o+2])<<8 | uint32(packet[o+3])
	fine := uint16(packet[o+4])<<8 | uint16(packet[o+5])
	return DecodeCUC(coarse, fine, false)
}

// ReadPacketsCallback reads from a byte stream, identifies packet
// boundaries and passes each packet to a callback
func ReadPacketsCallback(stream io.Reader, callback func(p *Packet)) error {
	return readPacketsInner(stream, make(Packet, 65536+7), callback)
}

// ReadPacketsChannel reads from a byte stream, identifies packet
// boundaries and passes each packet to a channel
func ReadPacketsChannel(stream io.Reader, channel chan *Packet) error {
	return readPacketsInner(stream, make(Packet, 65536+7), func(p *Packet) { channel <- p })
}

func readPacketsInner(stream io.Reader, pktbuf Packet, callback func(p *Packet)) error {
	pktptr, err, totalBytesRead := 0, error(nil), 0
	for err == nil {
		// Read packet header
		pktptr = 0
		toread := PrimaryHeaderLength
		for toread > 0 {
			var bytesRead, err = stream.Read(pktbuf[pktptr : pktptr+toread])
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			toread = toread - bytesRead
			pktptr = pktptr + bytesRead
		}

		if toread == PrimaryHeaderLength {
			return nil // clean EOF on a packet boundary
		}
		if toread > 0 {
			return fmt.Errorf("stream ends with partial packet in the header")
		}

		// Read the packet body
		toread = pktbuf.Length() + 1
		packetLength := toread + PrimaryHeaderLength
		for toread > 0 {
			var bytesRead, err = stream.Read(pktbuf[pktptr : pktptr+toread])
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			toread = toread - bytesRead
			pktptr = pktptr + bytesRead
		}

		if toread > 0 {
			return fmt.Errorf("stream ends with partial packet body: packet length was %d, total bytes read was %d", packetLength, totalBytesRead+(packetLength-toread))
		}

		callback(&pktbuf)

		totalBytesRead = totalBytesRead + packetLength
	}
	return nil
}

// A PacketIterator generates a sequence of packets, calling a function on each
type PacketIterator interface {
	Iterate(f func(p *Packet)) error
}

// PacketFile is a binary file containing a sequence of packets without
// any framing.  It implements PacketIterator.
type PacketFile struct {
	Filename string
}

// Iterate reads a packet file, splits it into packets and passes each to
// a callback.  The byte slice is reused between packets; a callback that
// holds on to a packet must copy it.
func (source PacketFile) Iterate(callback func(p *Packet)) error {
	file, err := os.Open(source.Filename)
	if err != nil {
		return err
	}
	defer file.Close()

	err = readPacketsInner(file, make(Packet, 65536+7), callback)
	if err != nil {
		return fmt.Errorf("%s: filename=%s", err.Error(), source.Filename)
	}
	return nil
}
