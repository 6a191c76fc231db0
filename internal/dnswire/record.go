package dnswire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Record is one resource record from the answer, authority, or additional
// section of a DNS message (RFC 1035 Section 4.1.3). Data's concrete type
// depends on Type: []byte for A/AAAA (and anything this client doesn't
// otherwise understand), string for CNAME/NS/PTR.
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  any
}

// ParseRecord reads one resource record from msg at *off, advancing *off
// past it. Record types this client has no use for (MX, TXT, SOA, OPT, ...)
// are kept as raw bytes in Data rather than rejected — spec.md's resolution
// algorithm only ever inspects A/AAAA records and ignores the rest.
func ParseRecord(msg []byte, off *int) (Record, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Record{}, err
	}
	if *off+10 > len(msg) {
		return Record{}, fmt.Errorf("%w: unexpected EOF reading record header", ErrDNSError)
	}
	rrType := binary.BigEndian.Uint16(msg[*off : *off+2])
	rrClass := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8 : *off+10]))
	*off += 10
	start := *off
	if start+rdlen > len(msg) {
		return Record{}, fmt.Errorf("%w: unexpected EOF reading record data", ErrDNSError)
	}

	var data any
	switch RecordType(rrType) {
	case TypeCNAME, TypeNS, TypePTR:
		n, err := DecodeName(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != rdlen {
			return Record{}, fmt.Errorf("%w: name record rdata length mismatch", ErrDNSError)
		}
		data = n
	default:
		b := make([]byte, rdlen)
		copy(b, msg[start:start+rdlen])
		*off = start + rdlen
		data = b
	}
	return Record{Name: name, Type: rrType, Class: rrClass, TTL: ttl, Data: data}, nil
}

// Marshal serializes the record to wire format. Only used by this client to
// build well-formed test fixtures and loopback fakes; live queries never
// marshal a Record, only a Question.
func (rr Record) Marshal() ([]byte, error) {
	nameWire, err := EncodeName(rr.Name)
	if err != nil {
		return nil, err
	}
	rdata, err := rr.marshalRData()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nameWire)+10+len(rdata))
	out = append(out, nameWire...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], rr.Type)
	binary.BigEndian.PutUint16(fixed[2:4], rr.Class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rdata)))
	out = append(out, fixed...)
	out = append(out, rdata...)
	return out, nil
}

func (rr Record) marshalRData() ([]byte, error) {
	switch RecordType(rr.Type) {
	case TypeA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 4 {
			return nil, fmt.Errorf("%w: A record data must be 4 bytes", ErrDNSError)
		}
		return b, nil
	case TypeAAAA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 16 {
			return nil, fmt.Errorf("%w: AAAA record data must be 16 bytes", ErrDNSError)
		}
		return b, nil
	case TypeCNAME, TypeNS, TypePTR:
		s, ok := rr.Data.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: name record data must be a non-empty string", ErrDNSError)
		}
		return EncodeName(s)
	default:
		if b, ok := rr.Data.([]byte); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: unsupported record type for marshal: %d", ErrDNSError, rr.Type)
	}
}

// Address returns the IP carried by an A or AAAA record. ok is false for any
// other record type, or if Data isn't the expected byte length.
func (rr Record) Address() (net.IP, bool) {
	b, ok := rr.Data.([]byte)
	if !ok {
		return nil, false
	}
	switch RecordType(rr.Type) {
	case TypeA:
		if len(b) != 4 {
			return nil, false
		}
		return net.IPv4(b[0], b[1], b[2], b[3]), true
	case TypeAAAA:
		if len(b) != 16 {
			return nil, false
		}
		return net.IP(b), true
	default:
		return nil, false
	}
}
