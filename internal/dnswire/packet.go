package dnswire

import "fmt"

// Limits on section sizes for messages parsed from the network, preventing
// a malicious or corrupt header count from driving a huge allocation.
const (
	MaxMessageSize  = 4096
	MaxQuestions    = 4
	MaxRRPerSection = 64
)

// Packet is a complete DNS message: a header and four sections (RFC 1035
// Section 4).
type Packet struct {
	Header      Header
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// Marshal serializes the packet to wire format.
func (p Packet) Marshal() ([]byte, error) {
	h := Header{
		ID:      p.Header.ID,
		Flags:   p.Header.Flags,
		QDCount: uint16(len(p.Questions)),
		ANCount: uint16(len(p.Answers)),
		NSCount: uint16(len(p.Authorities)),
		ARCount: uint16(len(p.Additionals)),
	}
	out := make([]byte, 0, HeaderSize+len(p.Questions)*32+
		(len(p.Answers)+len(p.Authorities)+len(p.Additionals))*32)
	out = append(out, h.Marshal()...)
	for _, q := range p.Questions {
		b, err := q.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	for _, section := range [][]Record{p.Answers, p.Authorities, p.Additionals} {
		for _, rr := range section {
			b, err := rr.Marshal()
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// ParsePacket decodes a complete DNS message from wire format. Section
// counts from the header are capped by MaxQuestions/MaxRRPerSection before
// they're used to size a slice, so a forged header can't force a large
// allocation from a small datagram.
func ParsePacket(msg []byte) (Packet, error) {
	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Packet{}, err
	}
	p := Packet{Header: h}

	p.Questions = make([]Question, 0, capCount(h.QDCount, MaxQuestions))
	for range h.QDCount {
		q, err := ParseQuestion(msg, &off)
		if err != nil {
			return Packet{}, err
		}
		p.Questions = append(p.Questions, q)
	}
	if sections, err := parseSections(msg, &off, h.ANCount, h.NSCount, h.ARCount); err != nil {
		return Packet{}, err
	} else {
		p.Answers, p.Authorities, p.Additionals = sections[0], sections[1], sections[2]
	}
	return p, nil
}

func parseSections(msg []byte, off *int, counts ...uint16) ([3][]Record, error) {
	var out [3][]Record
	for i, count := range counts {
		recs := make([]Record, 0, capCount(count, MaxRRPerSection))
		for range count {
			rr, err := ParseRecord(msg, off)
			if err != nil {
				return out, fmt.Errorf("section %d: %w", i, err)
			}
			recs = append(recs, rr)
		}
		out[i] = recs
	}
	return out, nil
}

func capCount(count uint16, limit int) int {
	if int(count) > limit {
		return limit
	}
	return int(count)
}
