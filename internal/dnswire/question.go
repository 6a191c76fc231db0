package dnswire

import (
	"encoding/binary"
	"fmt"
)

// Question is one entry of the DNS question section (RFC 1035 Section 4.1.2).
type Question struct {
	Name  string // domain name, lowercase, no trailing dot
	Type  uint16
	Class uint16
}

// Marshal serializes the question to wire format.
func (q Question) Marshal() ([]byte, error) {
	name, err := EncodeName(q.Name)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(name)+4)
	copy(b, name)
	binary.BigEndian.PutUint16(b[len(name):len(name)+2], q.Type)
	binary.BigEndian.PutUint16(b[len(name)+2:len(name)+4], q.Class)
	return b, nil
}

// ParseQuestion reads a Question from msg at *off, advancing *off past it.
func ParseQuestion(msg []byte, off *int) (Question, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Question{}, err
	}
	if *off+4 > len(msg) {
		return Question{}, fmt.Errorf("%w: unexpected EOF reading question", ErrDNSError)
	}
	q := Question{
		Name:  NormalizeName(name),
		Type:  binary.BigEndian.Uint16(msg[*off : *off+2]),
		Class: binary.BigEndian.Uint16(msg[*off+2 : *off+4]),
	}
	*off += 4
	return q, nil
}
