// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxAuthorLen   = 36
	MaxChatTextLen = 2048
)

var (
	ErrChatTextEmpty = errors.New("chat text empty")
	ErrChatTextLong  = errors.New("chat text too long")
)

// ChatMessage is immutable once created. The relay forwards it verbatim;
// the ID only has to be unique within one client session.
type ChatMessage struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// NewChatMessage is a tiny helper to avoid ad-hoc struct literals in clients.
func NewChatMessage(user, text string) (ChatMessage, error) {
	if len(text) == 0 {
		return ChatMessage{}, ErrChatTextEmpty
	}
	if len(text) > MaxChatTextLen {
		return ChatMessage{}, ErrChatTextLong
	}
	if len(user) > MaxAuthorLen {
		user = user[:MaxAuthorLen]
	}
	return ChatMessage{
		ID:   uuid.NewString(),
		User: user,
		Text: text,
		Time: time.Now().Format("15:04"),
	}, nil
}
