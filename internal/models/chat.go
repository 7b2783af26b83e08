// Package models defines the data structures exchanged over HTTP and stored in
// the database: chat requests, exchanges, training runs and status.
package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the longest accepted chat message, in characters.
const MaxMessageLength = 4096

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	Message string `json:"message"`
}

// Validate rejects oversized messages. An empty message is valid and gets the
// fallback reply.
func (r *ChatRequest) Validate() error {
	if n := utf8.RuneCountInString(r.Message); n > MaxMessageLength {
		return fmt.Errorf("message too long: %d characters (max %d)", n, MaxMessageLength)
	}
	return nil
}

// ChatResponse is the reply to a chat call.
type ChatResponse struct {
	Response   string  `json:"response"`
	Tag        string  `json:"tag,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Matched    bool    `json:"matched"`
}

// Exchange is one logged message and its reply.
type Exchange struct {
	ID         string    `json:"id" db:"id"`
	Message    string    `json:"message" db:"message"`
	Response   string    `json:"response" db:"response"`
	Tag        string    `json:"tag,omitempty" db:"tag"`
	Confidence float64   `json:"confidence" db:"confidence"`
	Matched    bool      `json:"matched" db:"matched"`
	Engine     string    `json:"engine" db:"engine"`
	SnapshotID string    `json:"snapshot_id,omitempty" db:"snapshot_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
