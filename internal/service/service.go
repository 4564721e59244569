// Package service runs the driver's form flows: it validates input through the
// gate, journals each submission and hands the entry to the backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/field-ledger/internal/config"
	"github.com/Dan9191/field-ledger/internal/invoice"
	"github.com/Dan9191/field-ledger/internal/models"
	"github.com/Dan9191/field-ledger/internal/repository"
	"github.com/Dan9191/field-ledger/internal/slips"
	"github.com/Dan9191/field-ledger/internal/validation"
)

var (
	ErrDraftNotFound      = errors.New("sale draft not found")
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrSlipUpload         = errors.New("image upload failed")
)

// Backend is the remote ledger API
type Backend interface {
	Register(ctx context.Context, req models.RegisterRequest) error
	DashboardSummary(ctx context.Context) (*models.DashboardSummary, error)
	DriverStock(ctx context.Context) (float64, error)
	Recent(ctx context.Context) ([]models.Transaction, error)
	History(ctx context.Context, txType models.TransactionType, subType string) ([]models.Transaction, error)
	Vehicles(ctx context.Context) ([]models.Vehicle, error)
	AddEntry(ctx context.Context, txType models.TransactionType, entry any, idempotencyKey string) (*models.Transaction, error)
	Customers(ctx context.Context) ([]models.Customer, error)
	CustomerByID(ctx context.Context, id string) (*models.Customer, error)
	AddCustomer(ctx context.Context, nc models.NewCustomer) (*models.Customer, error)
	CustomerHistory(ctx context.Context, id string) ([]models.Transaction, error)
	AddAdvance(ctx context.Context, id string, adv models.Advance, idempotencyKey string) (*models.Customer, error)
	Notifications(ctx context.Context, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Sessions is the driver's login state
type Sessions interface {
	Login(ctx context.Context, mobile, password string) (*models.User, error)
	Logout() error
	User() *models.User
}

// InvoiceSharer emails invoices
type InvoiceSharer interface {
	Enabled() bool
	Share(inv *invoice.Invoice, to string) error
}

// Deps are the collaborators of the service
type Deps struct {
	API      Backend
	Journal  repository.Journal
	Gate     *validation.Gate
	Uploader slips.Uploader
	Mailer   InvoiceSharer
	Session  Sessions
}

// EntryResult is a saved transaction plus anything the driver should be warned about
type EntryResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// Service handles business logic
type Service struct {
	api      Backend
	journal  repository.Journal
	gate     *validation.Gate
	uploader slips.Uploader
	mailer   InvoiceSharer
	session  Sessions
	business invoice.Business
	log      *logrus.Logger
	now      func() time.Time
	render   func(*invoice.Invoice) (string, error)

	mu       sync.Mutex
	drafts   map[string]*saleDraft
	inflight map[string]struct{}
}

// NewService initializes a new service
func NewService(d Deps, log *logrus.Logger, cfg *config.Config) *Service {
	uploader := d.Uploader
	if uploader == nil {
		uploader = slips.Disabled{}
	}
	return &Service{
		api:      d.API,
		journal:  d.Journal,
		gate:     d.Gate,
		uploader: uploader,
		mailer:   d.Mailer,
		session:  d.Session,
		business: invoice.Business{Name: cfg.BusinessName, Address: cfg.BusinessAddress},
		log:      log,
		now:      time.Now,
		render:   (*invoice.Invoice).HTML,
		drafts:   make(map[string]*saleDraft),
		inflight: make(map[string]struct{}),
	}
}

// Login validates the form and starts a session
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	if err := s.gate.Check(req); err != nil {
		return nil, err
	}
	return s.session.Login(ctx, req.Mobile, req.Password)
}

// Logout ends the session and drops unsent drafts
func (s *Service) Logout() error {
	s.mu.Lock()
	s.drafts = make(map[string]*saleDraft)
	s.mu.Unlock()
	return s.session.Logout()
}

// Register validates and submits a new driver account
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := s.gate.Check(req); err != nil {
		return err
	}
	if err := s.api.Register(ctx, req); err != nil {
		return err
	}
	s.log.Infof("Driver registered: %s", req.Mobile)
	return nil
}

// NewIdempotencyKey returns a fresh submission key
func NewIdempotencyKey() string {
	return uuid.NewString()
}

// acquire marks key as in flight until release is called
func (s *Service) acquire(key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, ErrSubmissionInFlight
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, nil
}

// submit journals and posts one entry under key
func (s *Service) submit(ctx context.Context, kind models.TransactionType, key, reference string, amount float64, entry any) (*models.Transaction, error) {
	var tx *models.Transaction
	sub := &repository.Submission{Key: key, Kind: kind, Reference: reference, Amount: amount}
	err := s.journaled(ctx, sub, func() (string, error) {
		var err error
		tx, err = s.api.AddEntry(ctx, kind, entry, key)
		if err != nil {
			return "", err
		}
		return tx.ID, nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// journaled runs post under the journal entry sub. post returns the backend's
// transaction ID, which may be empty.
func (s *Service) journaled(ctx context.Context, sub *repository.Submission, post func() (string, error)) error {
	if err := s.journal.Begin(ctx, sub); err != nil {
		return err
	}

	fields := logrus.Fields{"kind": sub.Kind, "key": sub.Key}
	id, err := post()
	if err != nil {
		if ferr := s.journal.Fail(ctx, sub.Key, err); ferr != nil {
			s.log.WithFields(fields).Errorf("Failed to journal failure: %v", ferr)
		}
		s.log.WithFields(fields).Errorf("Submission failed: %v", err)
		return fmt.Errorf("failed to save %s entry: %w", sub.Kind, err)
	}

	if err := s.journal.Complete(ctx, sub.Key, id); err != nil {
		s.log.WithFields(fields).Warnf("Failed to journal completion: %v", err)
	}
	s.log.WithFields(fields).WithField("transaction_id", id).Info("Entry saved")
	return nil
}

// Submissions lists the journal, newest first
func (s *Service) Submissions(ctx context.Context, limit int) ([]repository.Submission, error) {
	return s.journal.List(ctx, limit)
}

// CurrentUser is the logged-in driver, or nil
func (s *Service) CurrentUser() *models.User {
	return s.session.User()
}
