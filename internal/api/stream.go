package api

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// textFields is the priority-ordered list of payload fields that may carry
// the response text delta.
var textFields = []string{"text", "content", "response"}

// metaFields lists the correlation identifiers a frame may carry out of
// band. Each distinct value is surfaced exactly once per stream.
var metaFields = []string{"assistant_id", "thread_id", "doc_id"}

// StreamMeta is an out-of-band correlation identifier from a stream frame.
type StreamMeta struct {
	Key   string
	Value string
}

// StreamEvent is one element of a decoded stream: either a new cumulative
// text snapshot or a metadata event, never both.
type StreamEvent struct {
	// Text is the full response text accumulated so far. Snapshots grow
	// strictly by concatenation; each extends the previous one.
	Text string
	// Meta is non-nil for metadata events; Text is empty in that case.
	Meta *StreamMeta
}

// Stream decodes an event-framed response body into an ordered sequence of
// cumulative text snapshots. It is lazy, finite and non-restartable; frames
// are consumed strictly in arrival order.
type Stream struct {
	body     io.ReadCloser
	reader   *bufio.Reader
	acc      strings.Builder
	queue    []StreamEvent
	seenMeta map[string]bool
	done     bool
	err      error
	closed   bool
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:     body,
		reader:   bufio.NewReader(body),
		seenMeta: make(map[string]bool),
	}
}

// Text returns the cumulative response text decoded so far.
func (s *Stream) Text() string {
	return s.acc.String()
}

// Close releases the underlying stream. Next must not be called afterwards.
func (s *Stream) Close() {
	if !s.closed {
		s.closed = true
		_ = s.body.Close()
	}
}

// Next returns the next event from the stream. It returns io.EOF after the
// terminal sentinel or stream end, and a non-EOF error on stream fault or
// when the stream ends without ever producing content.
func (s *Stream) Next() (StreamEvent, error) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, nil
		}
		if s.err != nil {
			return StreamEvent{}, s.err
		}
		if s.done {
			return StreamEvent{}, io.EOF
		}

		line, readErr := s.reader.ReadString('\n')
		if line != "" {
			s.decodeLine(line)
		}
		if readErr != nil {
			s.finish(readErr)
		}
	}
}

// finish records the stream's terminal condition once the underlying reader
// is exhausted or failed.
func (s *Stream) finish(readErr error) {
	s.Close()
	if s.done || s.err != nil {
		return
	}
	if readErr != io.EOF {
		s.err = fmt.Errorf("failed to read stream: %w", readErr)
		return
	}
	// All-or-nothing guard: a stream that ends without a single delta is a
	// failure, never an empty success. Metadata events don't count.
	if s.acc.Len() == 0 {
		s.err = apierrors.ErrEmptyResponse
		return
	}
	s.done = true
}

// decodeLine processes one complete line of the stream.
func (s *Stream) decodeLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	payload := line
	if strings.HasPrefix(line, models.EventDataPrefix) {
		payload = strings.TrimSpace(line[len(models.EventDataPrefix):])
	} else {
		// Tolerate non-conforming servers: unprefixed lines get the same
		// decode-or-append treatment.
		payload = strings.TrimSpace(line)
	}

	if payload == models.StreamDoneSentinel {
		s.markDone()
		return
	}

	if !gjson.Valid(payload) {
		// Graceful degradation: keep malformed payloads verbatim rather
		// than dropping data.
		s.append(payload)
		return
	}

	frame := gjson.Parse(payload)

	if errField := frame.Get("error"); errField.Exists() && errField.String() != "" {
		s.Close()
		s.err = apierrors.NewStreamFaultError(errField.String())
		return
	}

	for _, key := range metaFields {
		v := frame.Get(key)
		if !v.Exists() || v.String() == "" {
			continue
		}
		id := key + "=" + v.String()
		if s.seenMeta[id] {
			continue
		}
		s.seenMeta[id] = true
		s.queue = append(s.queue, StreamEvent{Meta: &StreamMeta{Key: key, Value: v.String()}})
	}

	hasText := false
	for _, field := range textFields {
		v := frame.Get(field)
		if !v.Exists() {
			continue
		}
		hasText = true
		s.append(v.String())
		break
	}

	if frame.Get("complete").Bool() {
		s.markDone()
		return
	}

	// A valid JSON frame without a text field passes through verbatim so
	// callers can interpret it.
	if !hasText {
		s.append(payload)
	}
}

func (s *Stream) markDone() {
	// Sentinel before any content still fails the empty-response guard.
	if s.acc.Len() == 0 {
		s.err = apierrors.ErrEmptyResponse
	} else {
		s.done = true
	}
	s.Close()
}

// append grows the accumulator and emits a snapshot. Empty deltas (status
// frames carry "text": "") produce no event.
func (s *Stream) append(delta string) {
	if delta == "" {
		return
	}
	s.acc.WriteString(delta)
	s.queue = append(s.queue, StreamEvent{Text: s.acc.String()})
}
