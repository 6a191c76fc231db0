package httpserver

import (
	"fmt"
	"strconv"
	"strings"
)

// findCRLF returns the index of the first "\r\n" in buf, or -1.
func findCRLF(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// parseRequestLine splits "METHOD TARGET VERSION" on single spaces, per
// spec.md §4.3 step 1.
func parseRequestLine(line []byte) (RequestLine, error) {
	s := string(line)
	parts := strings.Split(s, " ")
	if len(parts) != 3 {
		return RequestLine{}, fmt.Errorf("%w: bad request line %q", ErrMalformedRequest, s)
	}
	if parts[0] == "" || parts[1] == "" || !strings.HasPrefix(parts[2], "HTTP/") {
		return RequestLine{}, fmt.Errorf("%w: bad request line %q", ErrMalformedRequest, s)
	}
	return RequestLine{Method: parts[0], Target: parts[1], Version: parts[2]}, nil
}

// parseHeaderLine splits "name:OWS value OWS" and lowercases the name.
func parseHeaderLine(line []byte) (name, value string, err error) {
	s := string(line)
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", "", fmt.Errorf("%w: bad header line %q", ErrMalformedRequest, s)
	}
	name = strings.ToLower(strings.TrimSpace(s[:i]))
	value = strings.TrimSpace(s[i+1:])
	if name == "" {
		return "", "", fmt.Errorf("%w: empty header name", ErrMalformedRequest)
	}
	return name, value, nil
}

func parseNonNegativeInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedRequest, s)
	}
	return n, nil
}

// parseChunkSizeLine parses a chunk-size line, ignoring any chunk
// extension after ';'.
func parseChunkSizeLine(line []byte) (int64, error) {
	s := string(line)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad chunk size %q", ErrMalformedRequest, s)
	}
	return n, nil
}
