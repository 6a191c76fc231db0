package httpserver

import (
	"bytes"
	"fmt"
	"strconv"

	"golang.org/x/net/http/httpguts"
)

// serializeResponse renders r to the exact wire bytes spec.md §4.3
// describes: status line, headers in insertion order, one Set-Cookie line
// per cookie, then Content-Length or Transfer-Encoding: chunked framing,
// the blank line, and the body.
func serializeResponse(r *Response) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, StatusText(r.Status))

	for _, name := range r.headerNames {
		value := r.headerValues[name]
		if !httpguts.ValidHeaderFieldValue(value) {
			value = ""
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	}
	for _, c := range r.Cookies {
		fmt.Fprintf(&buf, "Set-Cookie: %s\r\n", c.String())
	}

	if r.noLength {
		buf.WriteString("\r\n")
		buf.Write(r.body)
		return buf.Bytes()
	}

	if r.chunked {
		buf.WriteString("Transfer-Encoding: chunked\r\n\r\n")
		writeChunk(&buf, r.body)
		writeChunk(&buf, nil)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Content-Length: %s\r\n\r\n", strconv.Itoa(len(r.body)))
	buf.Write(r.body)
	return buf.Bytes()
}

// writeChunk writes one chunked-encoding chunk; a nil/empty p is the
// terminating zero-length chunk.
func writeChunk(buf *bytes.Buffer, p []byte) {
	fmt.Fprintf(buf, "%x\r\n", len(p))
	buf.Write(p)
	buf.WriteString("\r\n")
}
