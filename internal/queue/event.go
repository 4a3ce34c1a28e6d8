// Package queue defines the password reset mail event and moves it through
// a message broker to the mail worker.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

// PasswordResetQueue is the default queue (AMQP) and topic (Kafka) name.
const PasswordResetQueue = "auth.password_reset"

// PasswordResetRequested is published when a user asks for a reset link.
// It contains everything the worker needs to compose the email without
// querying the primary database.
type PasswordResetRequested struct {
	UserID      uint64        `json:"user_id"`
	Email       string        `json:"email"`
	FirstName   string        `json:"first_name"`
	ResetURL    string        `json:"reset_url"`
	ExpiresIn   time.Duration `json:"expires_in"`
	RequestedAt time.Time     `json:"requested_at"`
}

// Handler processes one decoded event.  A returned error means the event
// could not be delivered.
type Handler func(ctx context.Context, ev PasswordResetRequested) error

func encode(ev PasswordResetRequested) ([]byte, error) { return json.Marshal(ev) }

func decode(body []byte) (PasswordResetRequested, error) {
	var ev PasswordResetRequested
	err := json.Unmarshal(body, &ev)
	return ev, err
}
