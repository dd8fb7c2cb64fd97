// Package storage defines persistence contracts for support chat transcripts.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested transcript is missing.
var ErrNotFound = errors.New("transcript not found")

// Message stores one persisted chat line. Messages are immutable and ordered
// by append position within their room.
type Message struct {
	MessageID  string
	SenderType string
	Body       string
	SentAt     time.Time
}

// Transcript stores the durable record of one ended (or explicitly saved)
// support room together with its full message log.
type Transcript struct {
	RoomID       string
	CustomerRef  string
	CustomerName string
	AdminRef     string
	AdminName    string
	SupportType  string
	Description  string
	EndedBy      string
	StartedAt    time.Time
	EndedAt      time.Time
	Messages     []Message
}

// TranscriptStore persists room message logs. Saving the same room again
// replaces the previous transcript, so an explicit mid-chat save and the
// final end-of-chat save use the same call.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, transcript Transcript) error
	GetTranscript(ctx context.Context, roomID string) (Transcript, error)
}
