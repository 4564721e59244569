package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/field-ledger/internal/models"
)

// Dashboard returns today's summary and recent activity
func (s *Service) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	summary, err := s.api.DashboardSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	recent, err := s.api.Recent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	return &models.Dashboard{Summary: *summary, Recent: recent}, nil
}

// History lists recent entries of one type
func (s *Service) History(ctx context.Context, txType models.TransactionType, subType string) ([]models.Transaction, error) {
	return s.api.History(ctx, txType, subType)
}

// Vehicles lists the fleet with last odometer readings
func (s *Service) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	return s.api.Vehicles(ctx)
}

// Notifications lists the driver's notifications
func (s *Service) Notifications(ctx context.Context, unreadOnly bool) ([]models.Notification, error) {
	return s.api.Notifications(ctx, unreadOnly)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.api.MarkNotificationRead(ctx, id)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	return s.api.MarkAllNotificationsRead(ctx)
}
