package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	apierrors "github.com/diogo/agentchat/internal/errors"
)

// record is the on-disk shape: one JSON document holding every retained
// conversation.
type record struct {
	Conversations []*Conversation `json:"conversations"`
}

// load reads the persisted record, tolerating a missing file. Messages that
// were still pending when the process died are surfaced as failed rather
// than left spinning forever.
func (s *Store) load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	for _, conv := range rec.Conversations {
		for i := range conv.Messages {
			if conv.Messages[i].IsThinking {
				conv.Messages[i].IsThinking = false
				conv.Messages[i].IsError = true
				conv.Messages[i].ErrorType = apierrors.KindClient
				conv.Messages[i].Content = "Interrupted before a response arrived."
			}
		}
	}
	s.conversations = rec.Conversations
	return nil
}

// persistLocked serializes the retained conversations to disk. Caller holds
// the mutex. A write fault triggers one retry at half the retention cap;
// if that also fails the error is swallowed so a full disk can never block
// the conversation itself.
func (s *Store) persistLocked() {
	if s.path == "" || !s.loaded {
		return
	}

	if err := s.writeCapped(MaxConversations); err != nil {
		_ = s.writeCapped(MaxConversations / 2)
	}
}

func (s *Store) writeCapped(limit int) error {
	convs := s.conversations
	if len(convs) > limit {
		convs = convs[len(convs)-limit:]
	}

	data, err := json.MarshalIndent(record{Conversations: convs}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// purge removes the persisted record entirely.
func (s *Store) purge() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
