// Package tracker keeps upload session state so admins can poll progress.
package tracker

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/oklog/ulid/v2"

	"floordesign/upload"
)

// ErrSessionNotFound is returned by Load for unknown or pruned sessions.
var ErrSessionNotFound = errors.New("upload session not found")

// Session is one product submission as seen by the admin console.
type Session struct {
	ID        string       `json:"id"`
	StartedBy string       `json:"started_by"`
	State     upload.State `json:"state"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Tracker stores sessions.
type Tracker interface {
	Save(ctx context.Context, session Session) error
	Load(ctx context.Context, id string) (Session, error)
	// Prune removes finished sessions last updated before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// NewSessionID returns a time-ordered, URL-safe session ID.
func NewSessionID() string {
	return ulid.Make().String()
}

// Observer returns an upload.Observer that saves each state into session.
// Save failures are reported to onError and never stop the submission.
func Observer(t Tracker, session Session, onError func(error)) upload.Observer {
	return func(state upload.State) {
		session.State = state
		session.UpdatedAt = time.Now()
		if err := t.Save(context.Background(), session); err != nil && onError != nil {
			onError(err)
		}
	}
}
