// Package store maintains the conversation ledger: an append-only message
// transcript per conversation with a single permitted in-place update (the
// trailing pending assistant message), plus persistence and retention.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/diogo/agentchat/internal/errors"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	// MaxConversations caps the persisted (and retained) conversation list.
	MaxConversations = 50
	// TitleLimit is the derived-title length in runes.
	TitleLimit = 20
	// NewFlagDelay is how long the transient isNew display hint survives
	// after the last conversation mutation.
	NewFlagDelay = time.Second
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	// ErrNotPending is returned for updates targeting a message that has
	// already reached a terminal state. Late completions of superseded
	// operations hit this and are dropped.
	ErrNotPending = errors.New("message is not pending")
)

// Message is one turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// IsNew is a transient display hint cleared by housekeeping shortly
	// after a mutation.
	IsNew bool `json:"-"`
	// IsThinking marks an assistant message still awaiting its terminal
	// content. Mutually exclusive with IsError.
	IsThinking bool           `json:"is_thinking,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
	ErrorType  apierrors.Kind `json:"error_type,omitempty"`
}

// Document is a file reference bound to a conversation, reused by follow-up
// document questions until cleared. AssistantID/ThreadID carry the backend
// session so follow-ups skip re-uploading.
type Document struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	AssistantID string `json:"assistant_id,omitempty"`
	ThreadID    string `json:"thread_id,omitempty"`
}

// Conversation is an insertion-ordered collection of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	// Document is never persisted; a reload starts unbound.
	Document *Document `json:"-"`
}

// Pending identifies the placeholder assistant message of an in-flight
// operation. It is returned at append time and threaded through the whole
// operation so a late-arriving update can never target the wrong message.
type Pending struct {
	ConversationID string
	MessageID      string
}

// Store is the sole mutable shared resource: all mutation goes through its
// append/update/clear operations, serialized by an internal mutex.
type Store struct {
	mu            sync.Mutex
	path          string
	conversations []*Conversation
	currentID     string
	loaded        bool
	rev           uint64
	housekeeper   *time.Timer
}

// NewStore creates a store persisting to path, loading any existing record.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.loaded = true
	return s, nil
}

// NewMemoryStore creates a store without persistence.
func NewMemoryStore() *Store {
	return &Store{loaded: true}
}

// Revision increments on every mutation; presentation layers poll it to
// know when to re-render.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Conversations returns a snapshot of all conversations in insertion order.
func (s *Store) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, *copyConversation(conv))
	}
	return out
}

// Conversation returns a snapshot of one conversation.
func (s *Store) Conversation(id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(id)
	if conv == nil {
		return Conversation{}, ErrConversationNotFound
	}
	return *copyConversation(conv), nil
}

// CurrentID returns the id of the current conversation, or "".
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Current returns a snapshot of the current conversation.
func (s *Store) Current() (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(s.currentID)
	if conv == nil {
		return Conversation{}, false
	}
	return *copyConversation(conv), true
}

// Select makes a conversation current. Selection never mutates other
// conversations.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) == nil {
		return ErrConversationNotFound
	}
	s.currentID = id
	s.rev++
	return nil
}

// NewConversation creates an empty conversation, selects it and returns its
// id.
func (s *Store) NewConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.createLocked()
	s.currentID = conv.ID
	s.rev++
	s.persistLocked()
	return conv.ID
}

// Append atomically adds a user message and its pending assistant
// placeholder, returning the pending handle. With an empty convID the
// target is resolved explicitly: the current selection if any, otherwise
// the sole existing conversation if exactly one exists, otherwise a new
// conversation.
func (s *Store) Append(convID, userText string) (Pending, error) {
	if strings.TrimSpace(userText) == "" {
		return Pending{}, fmt.Errorf("cannot append empty user message")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.resolveLocked(convID)
	if err != nil {
		return Pending{}, err
	}

	now := time.Now()
	user := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   userText,
		Timestamp: now,
		IsNew:     true,
	}
	assistant := Message{
		ID:         uuid.NewString(),
		Role:       RoleAssistant,
		Timestamp:  now,
		IsNew:      true,
		IsThinking: true,
	}
	conv.Messages = append(conv.Messages, user, assistant)

	if conv.Title == "" {
		conv.Title = deriveTitle(userText)
	}

	s.currentID = conv.ID
	s.rev++
	s.persistLocked()
	s.scheduleHousekeepingLocked()

	return Pending{ConversationID: conv.ID, MessageID: assistant.ID}, nil
}

// UpdateStreaming replaces the pending message's content with a new
// cumulative snapshot, keeping it pending.
func (s *Store) UpdateStreaming(p Pending, content string) error {
	return s.updatePending(p, func(msg *Message) {
		msg.Content = content
	})
}

// Complete transitions the pending message to its terminal success state.
func (s *Store) Complete(p Pending, content string) error {
	return s.updatePending(p, func(msg *Message) {
		msg.Content = content
		msg.IsThinking = false
	})
}

// Fail transitions the pending message to its terminal failed state.
func (s *Store) Fail(p Pending, kind apierrors.Kind, message string) error {
	return s.updatePending(p, func(msg *Message) {
		msg.Content = message
		msg.IsThinking = false
		msg.IsError = true
		msg.ErrorType = kind
	})
}

// updatePending applies the single permitted in-place mutation. Targets
// that are missing or already terminal are rejected.
func (s *Store) updatePending(p Pending, apply func(*Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(p.ConversationID)
	if conv == nil {
		return ErrConversationNotFound
	}

	msg := findMessage(conv, p.MessageID)
	if msg == nil {
		return ErrMessageNotFound
	}
	if !msg.IsThinking {
		return ErrNotPending
	}

	apply(msg)

	s.rev++
	s.persistLocked()
	s.scheduleHousekeepingLocked()
	return nil
}

// PairedUserText returns the user message immediately preceding the given
// assistant message, for retry.
func (s *Store) PairedUserText(convID, assistantID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(convID)
	if conv == nil {
		return "", ErrConversationNotFound
	}

	for i, msg := range conv.Messages {
		if msg.ID != assistantID || msg.Role != RoleAssistant {
			continue
		}
		if i == 0 || conv.Messages[i-1].Role != RoleUser {
			return "", ErrMessageNotFound
		}
		return conv.Messages[i-1].Content, nil
	}
	return "", ErrMessageNotFound
}

// BindDocument attaches a document to a conversation for reuse by follow-up
// submissions.
func (s *Store) BindDocument(convID string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(convID)
	if conv == nil {
		return ErrConversationNotFound
	}
	d := doc
	conv.Document = &d
	s.rev++
	return nil
}

// DocumentFor returns a copy of the conversation's bound document, if any.
func (s *Store) DocumentFor(convID string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(convID)
	if conv == nil || conv.Document == nil {
		return nil
	}
	d := *conv.Document
	return &d
}

// ClearDocument removes the conversation's bound document.
func (s *Store) ClearDocument(convID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(convID)
	if conv == nil {
		return ErrConversationNotFound
	}
	conv.Document = nil
	s.rev++
	return nil
}

// ClearAll destroys every conversation and purges persisted storage.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = nil
	s.currentID = ""
	s.rev++
	return s.purge()
}

// FlushNewFlags clears the transient isNew hint on every message.
func (s *Store) FlushNewFlags() {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, conv := range s.conversations {
		for i := range conv.Messages {
			if conv.Messages[i].IsNew {
				conv.Messages[i].IsNew = false
				changed = true
			}
		}
	}
	if changed {
		s.rev++
	}
}

// scheduleHousekeepingLocked (re)arms the isNew housekeeping pass.
func (s *Store) scheduleHousekeepingLocked() {
	if s.housekeeper != nil {
		s.housekeeper.Stop()
	}
	s.housekeeper = time.AfterFunc(NewFlagDelay, s.FlushNewFlags)
}

// resolveLocked applies the explicit target-conversation rule.
func (s *Store) resolveLocked(convID string) (*Conversation, error) {
	if convID != "" {
		conv := s.find(convID)
		if conv == nil {
			return nil, ErrConversationNotFound
		}
		return conv, nil
	}
	if conv := s.find(s.currentID); conv != nil {
		return conv, nil
	}
	// No selection: fall back to the only conversation, never to an
	// arbitrary one.
	if len(s.conversations) == 1 {
		return s.conversations[0], nil
	}
	return s.createLocked(), nil
}

func (s *Store) createLocked() *Conversation {
	conv := &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Messages:  []Message{},
	}
	s.conversations = append(s.conversations, conv)
	s.pruneLocked()
	return conv
}

// pruneLocked enforces the retention cap, dropping oldest first.
func (s *Store) pruneLocked() {
	if len(s.conversations) <= MaxConversations {
		return
	}
	drop := len(s.conversations) - MaxConversations
	dropped := s.conversations[:drop]
	s.conversations = append([]*Conversation(nil), s.conversations[drop:]...)
	for _, conv := range dropped {
		if conv.ID == s.currentID {
			s.currentID = ""
		}
	}
}

func (s *Store) find(id string) *Conversation {
	if id == "" {
		return nil
	}
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func findMessage(conv *Conversation, id string) *Message {
	for i := range conv.Messages {
		if conv.Messages[i].ID == id {
			return &conv.Messages[i]
		}
	}
	return nil
}

func copyConversation(conv *Conversation) *Conversation {
	out := *conv
	out.Messages = append([]Message(nil), conv.Messages...)
	if conv.Document != nil {
		d := *conv.Document
		out.Document = &d
	}
	return &out
}

// deriveTitle builds the immutable conversation title from the first user
// message.
func deriveTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= TitleLimit {
		return text
	}
	return strings.TrimRight(string(runes[:TitleLimit]), " ") + "..."
}
