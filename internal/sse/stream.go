package sse

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hydraio/hydraio/internal/httpserver"
)

// State is the SSE stream's monotonically non-decreasing lifecycle, per
// spec.md §3.
type State int

const (
	Init State = iota
	Started
	Ending
	Ended
	Closed
)

// Event is one EventSource message. ID, Event, and Retry are omitted from
// the wire format when zero-valued; Data is split on "\n" so each source
// line becomes its own "data:" line, per the EventSource multi-line data
// convention.
type Event struct {
	ID    string
	Event string
	Data  string
	Retry int // milliseconds; 0 omits the retry: line
}

func encodeEvent(ev Event) []byte {
	var b bytes.Buffer
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Event)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	if ev.Retry > 0 {
		fmt.Fprintf(&b, "retry: %s\n", strconv.Itoa(ev.Retry))
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// Stream is one upgraded SSE connection.
type Stream struct {
	ID   string
	http *httpserver.Connection

	state   State
	queue   [][]byte
	writing bool

	onClosed func()
}

// Start emits the SSE handshake response (status 200, the fixed
// Content-Type/Cache-Control/Connection headers, no Content-Length) and
// transitions the connection to Upgraded_SSE. onClosed, if non-nil, fires
// once the peer disconnects or a write fails, so the caller can stop
// scheduling further events.
func Start(resp *httpserver.Response, onClosed func()) *Stream {
	s := &Stream{ID: uuid.NewString(), state: Init, onClosed: onClosed}

	resp.Status = 200
	resp.SetHeader("Content-Type", "text/event-stream")
	resp.SetHeader("Cache-Control", "no-cache")
	resp.SetHeader("Connection", "keep-alive")
	resp.SuppressLength()
	resp.Upgrade(httpserver.StateUpgradedSSE, func(buf []byte, err error) { s.handleRecv(buf, err) })
	resp.Respond()

	s.http = resp.Conn()
	s.state = Started
	return s
}

// Event serializes and enqueues one event. Per spec.md §4.4, events may
// only be enqueued while state is Started or Ending; anything enqueued
// after Ending has no ordering guarantee relative to End, so callers
// should stop calling Event once they've called End. Once state has
// advanced past Ending, events are dropped without error.
func (s *Stream) Event(ev Event) {
	if s.state != Started && s.state != Ending {
		return
	}
	s.queue = append(s.queue, encodeEvent(ev))
	s.pump()
}

// End drains any queued events, then closes the connection. Events passed
// to Event while that drain is still in progress are queued and sent too;
// once the connection has been closed, further Event calls are ignored.
func (s *Stream) End() {
	if s.state == Started {
		s.state = Ending
	}
	s.pump()
}

func (s *Stream) pump() {
	if s.state == Closed || s.state == Ended {
		return
	}
	if s.writing {
		return
	}
	if len(s.queue) == 0 {
		if s.state == Ending {
			s.finish()
		}
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.writing = true
	s.http.SendAll(next, func(n int, err error) {
		s.writing = false
		if err != nil {
			s.forceClose()
			return
		}
		s.pump()
	})
}

func (s *Stream) finish() {
	s.state = Ended
	s.state = Closed
	s.http.Close()
}

func (s *Stream) forceClose() {
	if s.state == Closed {
		return
	}
	s.state = Closed
	s.http.Close()
	if s.onClosed != nil {
		s.onClosed()
	}
}

// handleRecv watches for the peer closing its half of the connection; SSE
// is one-way, so any bytes the client does send are simply discarded and
// reading continues.
func (s *Stream) handleRecv(buf []byte, err error) {
	if s.state == Closed {
		return
	}
	if err != nil || len(buf) == 0 {
		s.state = Closed
		if s.onClosed != nil {
			s.onClosed()
		}
		return
	}
	s.http.ContinueRecv(func(buf []byte, err error) { s.handleRecv(buf, err) })
}
