// Package repository records every submission sent to the backend, keyed by its
// idempotency key, so a form cannot be posted twice.
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/field-ledger/internal/models"
)

// ErrDuplicateSubmission is returned by Begin when the key is pending or completed.
var ErrDuplicateSubmission = errors.New("submission already in progress or completed")

// ErrSubmissionNotFound is returned for an unknown key.
var ErrSubmissionNotFound = errors.New("submission not found")

// Status of a journaled submission
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Submission is one attempt to create a backend transaction
type Submission struct {
	Key           string                 `json:"key"`
	Kind          models.TransactionType `json:"kind"`
	Reference     string                 `json:"reference,omitempty"`
	Amount        float64                `json:"amount"`
	Status        Status                 `json:"status"`
	TransactionID string                 `json:"transactionId,omitempty"`
	Error         string                 `json:"error,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// Journal stores submissions. Begin may be retried for a key whose last attempt failed.
type Journal interface {
	Begin(ctx context.Context, s *Submission) error
	Complete(ctx context.Context, key, transactionID string) error
	Fail(ctx context.Context, key string, cause error) error
	List(ctx context.Context, limit int) ([]Submission, error)
}

// MemoryJournal is a Journal for running without a database
type MemoryJournal struct {
	mu   sync.Mutex
	subs map[string]*Submission
	now  func() time.Time
}

// NewMemoryJournal creates an empty in-memory journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{subs: make(map[string]*Submission), now: time.Now}
}

func (j *MemoryJournal) Begin(ctx context.Context, s *Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	if existing, ok := j.subs[s.Key]; ok {
		if existing.Status != StatusFailed {
			return ErrDuplicateSubmission
		}
		existing.Status = StatusPending
		existing.Error = ""
		existing.Amount = s.Amount
		existing.UpdatedAt = now
		*s = *existing
		return nil
	}

	s.Status = StatusPending
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	j.subs[s.Key] = &cp
	return nil
}

func (j *MemoryJournal) Complete(ctx context.Context, key, transactionID string) error {
	return j.update(key, func(s *Submission) {
		s.Status = StatusCompleted
		s.TransactionID = transactionID
	})
}

func (j *MemoryJournal) Fail(ctx context.Context, key string, cause error) error {
	return j.update(key, func(s *Submission) {
		s.Status = StatusFailed
		if cause != nil {
			s.Error = cause.Error()
		}
	})
}

func (j *MemoryJournal) update(key string, fn func(s *Submission)) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	s, ok := j.subs[key]
	if !ok {
		return ErrSubmissionNotFound
	}
	fn(s)
	s.UpdatedAt = j.now()
	return nil
}

// List returns the newest submissions first
func (j *MemoryJournal) List(ctx context.Context, limit int) ([]Submission, error) {
	j.mu.Lock()
	out := make([]Submission, 0, len(j.subs))
	for _, s := range j.subs {
		out = append(out, *s)
	}
	j.mu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].Key > out[b].Key
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
