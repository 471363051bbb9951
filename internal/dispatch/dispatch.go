// Package dispatch routes a submitted message to the backend operation its
// conversation state and mode call for, and drives the conversation store
// through the operation's lifecycle. Operation failures never escape: they
// become failed assistant messages with a classified error kind.
package dispatch

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/diogo/agentchat/internal/api"
	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/normalize"
	"github.com/diogo/agentchat/internal/store"
)

// Mode selects the backend route for messages without a bound document.
type Mode string

const (
	ModeChat     Mode = "chat"
	ModeSearch   Mode = "search"
	ModeMarkdown Mode = "markdown"
)

// Cycle returns the next mode, for mode-toggling UIs.
func (m Mode) Cycle() Mode {
	switch m {
	case ModeChat:
		return ModeSearch
	case ModeSearch:
		return ModeMarkdown
	default:
		return ModeChat
	}
}

// markdownInstruction is prepended to the outbound message in markdown mode.
// The stored user message stays verbatim.
const markdownInstruction = "Format your entire response as clean markdown. " +
	"Use headings, bullet lists, tables and fenced code blocks where they help.\n\n"

// Backend is the slice of the API client the dispatcher drives.
type Backend interface {
	Chat(ctx context.Context, message string) ([]byte, error)
	ChatStream(ctx context.Context, message string) (*api.Stream, error)
	Search(ctx context.Context, query string) ([]byte, error)
	DocumentQAStream(ctx context.Context, req api.DocumentRequest) (*api.Stream, error)
	BaseURL() string
}

// Request is one user submission.
type Request struct {
	// ConversationID targets a conversation explicitly; empty resolves
	// through the store's selection rules.
	ConversationID string
	Message        string
	Mode           Mode
	// Attachment is a document path submitted alongside the message. It
	// routes this and subsequent messages through document QA.
	Attachment string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStreamDelay sets the pause between consecutive snapshot updates, so
// streamed text paces readably instead of arriving in bursts.
func WithStreamDelay(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.streamDelay = d }
}

// WithStreamingChat routes plain chat through the streaming endpoint.
func WithStreamingChat(enabled bool) Option {
	return func(disp *Dispatcher) { disp.streamChat = enabled }
}

// Dispatcher owns the submit/retry entry points.
type Dispatcher struct {
	backend     Backend
	store       *store.Store
	streamDelay time.Duration
	streamChat  bool
}

func New(backend Backend, st *store.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{backend: backend, store: st}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit records the user message with its pending placeholder, then runs
// the routed operation to a terminal state. The returned error covers only
// recording failures; operation failures are written to the store as failed
// messages.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (store.Pending, error) {
	pending, err := d.store.Append(req.ConversationID, req.Message)
	if err != nil {
		return store.Pending{}, err
	}

	if err := d.run(ctx, pending, req); err != nil {
		d.fail(pending, err)
	}
	return pending, nil
}

// Retry re-submits the user message paired with a failed assistant message.
// The original pair is left untouched; the retry appends a fresh one.
func (d *Dispatcher) Retry(ctx context.Context, convID, assistantMsgID string, mode Mode) (store.Pending, error) {
	text, err := d.store.PairedUserText(convID, assistantMsgID)
	if err != nil {
		return store.Pending{}, err
	}
	return d.Submit(ctx, Request{ConversationID: convID, Message: text, Mode: mode})
}

// run routes the request. An attached or bound document takes precedence
// over the mode: document conversations stay grounded in their document.
func (d *Dispatcher) run(ctx context.Context, pending store.Pending, req Request) error {
	if req.Attachment != "" {
		return d.documentQA(ctx, pending, api.DocumentRequest{
			Question: req.Message,
			FilePath: req.Attachment,
		}, req.Attachment)
	}
	if doc := d.store.DocumentFor(pending.ConversationID); doc != nil {
		docReq := api.DocumentRequest{
			Question:    req.Message,
			AssistantID: doc.AssistantID,
			ThreadID:    doc.ThreadID,
		}
		// Re-upload only when the document was never indexed.
		if docReq.AssistantID == "" {
			docReq.FilePath = doc.Path
		}
		return d.documentQA(ctx, pending, docReq, "")
	}

	switch req.Mode {
	case ModeSearch:
		return d.search(ctx, pending, req.Message)
	case ModeMarkdown:
		return d.chat(ctx, pending, markdownInstruction+req.Message)
	default:
		if d.streamChat {
			return d.chatStream(ctx, pending, req.Message)
		}
		return d.chat(ctx, pending, req.Message)
	}
}

func (d *Dispatcher) chat(ctx context.Context, pending store.Pending, message string) error {
	body, err := d.backend.Chat(ctx, message)
	if err != nil {
		return err
	}
	text, err := normalize.Chat(body)
	if err != nil {
		return err
	}
	return d.store.Complete(pending, text)
}

func (d *Dispatcher) chatStream(ctx context.Context, pending store.Pending, message string) error {
	stream, err := d.backend.ChatStream(ctx, message)
	if err != nil {
		return err
	}
	defer stream.Close()

	final, err := d.drain(ctx, pending, stream, nil)
	if err != nil {
		return err
	}
	return d.store.Complete(pending, final)
}

func (d *Dispatcher) search(ctx context.Context, pending store.Pending, query string) error {
	body, err := d.backend.Search(ctx, query)
	if err != nil {
		return err
	}
	return d.store.Complete(pending, normalize.Search(body))
}

// documentQA streams a document-grounded answer, capturing correlation
// metadata so follow-ups reuse the indexed document instead of re-uploading.
// attachment is non-empty on first submission of an ad-hoc document.
func (d *Dispatcher) documentQA(ctx context.Context, pending store.Pending, docReq api.DocumentRequest, attachment string) error {
	stream, err := d.backend.DocumentQAStream(ctx, docReq)
	if err != nil {
		return err
	}
	defer stream.Close()

	meta := map[string]string{}
	final, err := d.drain(ctx, pending, stream, func(key, value string) {
		meta[key] = value
	})
	if err != nil {
		return err
	}

	// Legacy servers answer with a single {answer, page_images} payload
	// instead of text deltas.
	if text, err := normalize.DocumentQA([]byte(final), d.backend.BaseURL()); err == nil {
		final = text
	}

	d.bindDocument(pending.ConversationID, docReq, attachment, meta)
	return d.store.Complete(pending, final)
}

// bindDocument records or refreshes the conversation's document binding
// after a successful document answer.
func (d *Dispatcher) bindDocument(convID string, docReq api.DocumentRequest, attachment string, meta map[string]string) {
	doc := d.store.DocumentFor(convID)
	if doc == nil {
		if attachment == "" {
			return
		}
		doc = &store.Document{Name: filepath.Base(attachment), Path: attachment}
	}
	if id := meta["assistant_id"]; id != "" {
		doc.AssistantID = id
	}
	if id := meta["thread_id"]; id != "" {
		doc.ThreadID = id
	}
	_ = d.store.BindDocument(convID, *doc)
}

// drain consumes the stream, pushing each cumulative snapshot to the pending
// message and handing metadata to onMeta. Returns the final snapshot.
func (d *Dispatcher) drain(ctx context.Context, pending store.Pending, stream *api.Stream, onMeta func(key, value string)) (string, error) {
	first := true
	for {
		ev, err := stream.Next()
		if err == io.EOF {
			return stream.Text(), nil
		}
		if err != nil {
			return "", err
		}

		if ev.Meta != nil {
			if onMeta != nil {
				onMeta(ev.Meta.Key, ev.Meta.Value)
			}
			continue
		}

		if !first {
			d.pace(ctx)
		}
		first = false

		if err := d.store.UpdateStreaming(pending, ev.Text); err != nil {
			// Superseded: a later operation owns the message now.
			return "", err
		}
	}
}

// pace inserts the configured delay between snapshot updates.
func (d *Dispatcher) pace(ctx context.Context) {
	if d.streamDelay <= 0 {
		return
	}
	timer := time.NewTimer(d.streamDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// fail writes the terminal failed state with a classified kind and a
// user-facing message. Late failures against a superseded message are
// dropped by the store.
func (d *Dispatcher) fail(pending store.Pending, err error) {
	kind := apierrors.Classify(err)
	_ = d.store.Fail(pending, kind, userMessage(kind, err))
}

// userMessage maps an error kind to the text shown in the transcript.
func userMessage(kind apierrors.Kind, err error) string {
	switch kind {
	case apierrors.KindNetwork:
		return "Could not reach the server. Check that it is running and try again."
	case apierrors.KindTimeout:
		return "The request timed out. Try again."
	case apierrors.KindServer:
		return "The server failed to process this request. Try again in a moment."
	case apierrors.KindClient:
		return err.Error()
	default:
		return "Something went wrong: " + err.Error()
	}
}
