package api

import (
	"errors"
	"io"
	"strings"
	"testing"

	apierrors "github.com/diogo/agentchat/internal/errors"
)

// chunkReader yields its chunks one Read at a time, regardless of buffer
// size, to exercise partial-line buffering.
type chunkReader struct {
	chunks []string
	pos    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.pos])
	if n < len(r.chunks[r.pos]) {
		r.chunks[r.pos] = r.chunks[r.pos][n:]
	} else {
		r.pos++
	}
	return n, nil
}

func streamOf(body string) *Stream {
	return newStream(io.NopCloser(strings.NewReader(body)))
}

// drain collects all events until EOF or error.
func drain(t *testing.T, s *Stream) ([]StreamEvent, error) {
	t.Helper()
	var events []StreamEvent
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func textSnapshots(events []StreamEvent) []string {
	var out []string
	for _, ev := range events {
		if ev.Meta == nil {
			out = append(out, ev.Text)
		}
	}
	return out
}

func TestStream_CumulativeSnapshots(t *testing.T) {
	body := "data: {\"text\":\"The \"}\n" +
		"data: {\"text\":\"answer is 42.\"}\n" +
		"data: [DONE]\n"

	events, err := drain(t, streamOf(body))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	got := textSnapshots(events)
	want := []string{"The ", "The answer is 42."}
	if len(got) != len(want) {
		t.Fatalf("got %d snapshots %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStream_SnapshotsArePrefixExtensions(t *testing.T) {
	body := "data: {\"text\":\"alpha \"}\n" +
		"data: {\"content\":\"beta \"}\n" +
		"not json at all\n" +
		"data: {\"response\":\"gamma\"}\n" +
		"data: [DONE]\n"

	events, err := drain(t, streamOf(body))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	snaps := textSnapshots(events)
	if len(snaps) < 2 {
		t.Fatalf("expected several snapshots, got %v", snaps)
	}
	prev := ""
	for i, s := range snaps {
		if len(s) <= len(prev) {
			t.Errorf("snapshot[%d] did not grow: %q -> %q", i, prev, s)
		}
		if !strings.HasPrefix(s, prev) {
			t.Errorf("snapshot[%d] %q is not a prefix-extension of %q", i, s, prev)
		}
		prev = s
	}
	if prev != "alpha beta not json at allgamma" {
		t.Errorf("final text = %q", prev)
	}
}

func TestStream_FieldPriority(t *testing.T) {
	// text wins over content and response when several are present
	body := "data: {\"response\":\"c\",\"content\":\"b\",\"text\":\"a\"}\ndata: [DONE]\n"

	events, err := drain(t, streamOf(body))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	snaps := textSnapshots(events)
	if len(snaps) != 1 || snaps[0] != "a" {
		t.Errorf("snapshots = %v, want [a]", snaps)
	}
}

func TestStream_EmptyStreamFails(t *testing.T) {
	_, err := drain(t, streamOf(""))
	if !errors.Is(err, apierrors.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestStream_SentinelWithoutContentFails(t *testing.T) {
	_, err := drain(t, streamOf("data: [DONE]\n"))
	if !errors.Is(err, apierrors.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestStream_StatusFramesOnlyFails(t *testing.T) {
	// Status frames carry "text": "" and must not count as deltas.
	body := "data: {\"status\":\"started\",\"text\":\"\"}\n" +
		"data: {\"status\":\"processing_file\",\"text\":\"\"}\n"

	events, err := drain(t, streamOf(body))
	if !errors.Is(err, apierrors.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
	if len(textSnapshots(events)) != 0 {
		t.Errorf("status frames produced snapshots: %v", events)
	}
}

func TestStream_MetadataEmittedOncePerValue(t *testing.T) {
	body := "data: {\"thread_id\":\"th-1\",\"text\":\"\"}\n" +
		"data: {\"text\":\"part \",\"thread_id\":\"th-1\"}\n" +
		"data: {\"text\":\"two\",\"thread_id\":\"th-1\",\"assistant_id\":\"as-9\"}\n" +
		"data: [DONE]\n"

	events, err := drain(t, streamOf(body))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	meta := map[string]int{}
	for _, ev := range events {
		if ev.Meta != nil {
			meta[ev.Meta.Key+"="+ev.Meta.Value]++
		}
	}
	if meta["thread_id=th-1"] != 1 {
		t.Errorf("thread_id emitted %d times, want 1", meta["thread_id=th-1"])
	}
	if meta["assistant_id=as-9"] != 1 {
		t.Errorf("assistant_id emitted %d times, want 1", meta["assistant_id=as-9"])
	}
}

func TestStream_ErrorFrameFails(t *testing.T) {
	body := "data: {\"text\":\"partial\"}\n" +
		"data: {\"error\":\"run failed\",\"complete\":true}\n"

	s := streamOf(body)
	events, err := drain(t, s)

	var fault *apierrors.StreamFaultError
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want StreamFaultError", err)
	}
	if fault.Message != "run failed" {
		t.Errorf("fault message = %q", fault.Message)
	}
	// The partial snapshot was still delivered before the fault
	snaps := textSnapshots(events)
	if len(snaps) != 1 || snaps[0] != "partial" {
		t.Errorf("snapshots before fault = %v", snaps)
	}
}

func TestStream_CompleteFlagTerminates(t *testing.T) {
	body := "data: {\"text\":\"all done\"}\n" +
		"data: {\"text\":\"\",\"complete\":true,\"full_response\":\"all done\"}\n" +
		"data: {\"text\":\"ignored tail\"}\n"

	s := streamOf(body)
	events, err := drain(t, s)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	snaps := textSnapshots(events)
	if len(snaps) != 1 || snaps[0] != "all done" {
		t.Errorf("snapshots = %v, want [all done]", snaps)
	}
	if s.Text() != "all done" {
		t.Errorf("Text() = %q", s.Text())
	}
}

func TestStream_PartialLineBuffering(t *testing.T) {
	// Lines split across arbitrary chunk boundaries must reassemble.
	r := &chunkReader{chunks: []string{
		"data: {\"te",
		"xt\":\"Hello",
		", \"}\ndata: {\"text\":\"world\"}\nda",
		"ta: [DONE]\n",
	}}

	events, err := drain(t, newStream(io.NopCloser(r)))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	snaps := textSnapshots(events)
	want := []string{"Hello, ", "Hello, world"}
	if len(snaps) != 2 || snaps[0] != want[0] || snaps[1] != want[1] {
		t.Errorf("snapshots = %v, want %v", snaps, want)
	}
}

func TestStream_TrailingPartialLineAtEOF(t *testing.T) {
	// A final line without a newline is still decoded.
	body := "data: {\"text\":\"no newline\"}"

	events, err := drain(t, streamOf(body))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	snaps := textSnapshots(events)
	if len(snaps) != 1 || snaps[0] != "no newline" {
		t.Errorf("snapshots = %v", snaps)
	}
}

func TestStream_UnknownJSONFramePassesThrough(t *testing.T) {
	// Frames without a text field reach the caller verbatim.
	body := "data: {\"answer\":\"From page 3.\",\"page_images\":[\"doc_page_3.png\"]}\ndata: [DONE]\n"

	events, err := drain(t, streamOf(body))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	snaps := textSnapshots(events)
	if len(snaps) != 1 || !strings.Contains(snaps[0], `"answer"`) {
		t.Errorf("snapshots = %v", snaps)
	}
}

func TestStream_RawFallbackKeepsData(t *testing.T) {
	body := "data: this is not json\ndata: [DONE]\n"

	events, err := drain(t, streamOf(body))
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	snaps := textSnapshots(events)
	if len(snaps) != 1 || snaps[0] != "this is not json" {
		t.Errorf("snapshots = %v", snaps)
	}
}
