package httpserver

// Body reads req's entire body, buffering up to maxBytes, and invokes cb
// exactly once with either the body and BodyErrorNone or a nil buffer and
// the BodyErrorKind that stopped it. It implements spec.md §4.3 step 3:
// Content-Length and chunked framing, both driven off the same incremental
// buffer the connection already accumulated past the header block.
//
// Body must be called at most once per request, synchronously from inside
// the Handler; calling it again, or after the body already finished,
// reports BodyErrorScanFailed.
func Body(req *Request, maxBytes int64, cb func(buf []byte, kind BodyErrorKind)) {
	if req.bodyState != BodyNotRead {
		cb(nil, BodyErrorScanFailed)
		return
	}
	c := req.conn
	req.bodyState = BodyReading
	req.bodyCallback = cb

	br := &bodyReader{conn: c, maxBytes: maxBytes}

	if req.IsChunked() {
		br.chunked = true
		br.chunkLeft = chunkNeedsSize
	} else {
		n := req.ContentLength()
		switch {
		case n < 0:
			br.fail(BodyErrorInvalidLength)
			return
		case n > maxBytes:
			br.fail(BodyErrorTooLong)
			return
		case n == 0:
			br.finish()
			return
		default:
			br.remaining = n
		}
	}

	br.idx = c.headerEnd
	c.body = br
	c.state = StateReadingBody
	br.process()
}

// chunkLeft sentinel values: a non-negative chunkLeft is "this many payload
// bytes remain in the current chunk"; the two negatives below are states
// between chunks.
const (
	chunkNeedsSize    int64 = -1 // next bytes are a chunk-size line
	chunkReadTrailers int64 = -2 // the zero-length chunk arrived; scanning trailers
)

// bodyReader incrementally consumes req.conn.readBuf starting at idx,
// requesting more data via the connection's normal recv loop whenever the
// buffered bytes run out before the body is complete.
type bodyReader struct {
	conn      *Connection
	maxBytes  int64
	chunked   bool
	remaining int64 // content-length bytes left to consume; unused when chunked
	chunkLeft int64 // chunked-only: see sentinels above
	idx       int   // offset into conn.readBuf of the next unconsumed byte
	collected []byte
}

func (br *bodyReader) process() {
	if br.chunked {
		br.processChunked()
		return
	}
	buf := br.conn.readBuf
	avail := buf[br.idx:]
	need := br.remaining - int64(len(br.collected))
	if int64(len(avail)) < need {
		br.collected = append(br.collected, avail...)
		br.idx += len(avail)
		br.conn.submitRecv()
		return
	}
	br.collected = append(br.collected, avail[:need]...)
	br.idx += int(need)
	br.finish()
}

func (br *bodyReader) processChunked() {
	for {
		buf := br.conn.readBuf
		rest := buf[br.idx:]

		switch {
		case br.chunkLeft == chunkNeedsSize:
			le := findCRLF(rest)
			if le < 0 {
				br.conn.submitRecv()
				return
			}
			size, err := parseChunkSizeLine(rest[:le])
			if err != nil {
				br.fail(BodyErrorInvalidChunkSize)
				return
			}
			br.idx += le + 2
			if size == 0 {
				br.chunkLeft = chunkReadTrailers
				continue
			}
			if int64(len(br.collected))+size > br.maxBytes {
				br.fail(BodyErrorTooLong)
				return
			}
			br.chunkLeft = size

		case br.chunkLeft == chunkReadTrailers:
			le := findCRLF(rest)
			if le < 0 {
				br.conn.submitRecv()
				return
			}
			br.idx += le + 2
			if le == 0 {
				br.finish()
				return
			}
			// a trailer header line; httpserver doesn't surface trailers to
			// handlers, so it's scanned past and discarded.

		default:
			need := br.chunkLeft + 2 // payload plus its trailing CRLF
			if int64(len(rest)) < need {
				br.conn.submitRecv()
				return
			}
			if rest[br.chunkLeft] != '\r' || rest[br.chunkLeft+1] != '\n' {
				br.fail(BodyErrorInvalidChunkSize)
				return
			}
			br.collected = append(br.collected, rest[:br.chunkLeft]...)
			br.idx += int(need)
			br.chunkLeft = chunkNeedsSize
		}
	}
}

func (br *bodyReader) finish() {
	req := br.conn.req
	req.bodyBytes = br.collected
	req.bodyState = BodyReady
	br.conn.body = nil
	br.conn.state = StateHandling
	if req.bodyCallback != nil {
		req.bodyCallback(br.collected, BodyErrorNone)
	}
}

func (br *bodyReader) fail(kind BodyErrorKind) {
	req := br.conn.req
	req.bodyErr = kind
	req.bodyState = BodyError
	br.conn.body = nil
	if br.conn.state == StateReadingBody {
		br.conn.state = StateHandling
	}
	if req.bodyCallback != nil {
		req.bodyCallback(nil, kind)
	}
}
