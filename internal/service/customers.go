package service

import (
	"context"
	"strings"

	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/models"
	"github.com/Dan9191/field-ledger/internal/repository"
)

// NoteWindowDays is how far back debit and credit notes are shown on a customer.
const NoteWindowDays = 7

// SearchCustomers matches the name case-insensitively or the mobile as typed
func (s *Service) SearchCustomers(ctx context.Context, query string) ([]models.Customer, error) {
	cs, err := s.api.Customers(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCustomers(cs, query), nil
}

// FilterCustomers keeps customers whose name or mobile contains query
func FilterCustomers(cs []models.Customer, query string) []models.Customer {
	if query == "" {
		return cs
	}
	q := strings.ToLower(query)
	out := make([]models.Customer, 0, len(cs))
	for _, c := range cs {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(c.Mobile, query) {
			out = append(out, c)
		}
	}
	return out
}

// AddCustomer validates and creates a customer. An unparsable opening balance is zero.
func (s *Service) AddCustomer(ctx context.Context, form models.CustomerForm) (*models.Customer, error) {
	if err := s.gate.Check(form); err != nil {
		return nil, err
	}
	cust, err := s.api.AddCustomer(ctx, models.NewCustomer{
		Name:    form.Name,
		Mobile:  form.Mobile,
		Address: form.Address,
		Balance: ledger.ParseAmount(form.OpeningBalance),
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("customer_id", cust.ID).Info("Customer added")
	return cust, nil
}

// CustomerLedger returns a customer with their sales and the recent financial notes
func (s *Service) CustomerLedger(ctx context.Context, id string) (*models.CustomerLedger, error) {
	cust, err := s.api.CustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.api.CustomerHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().AddDate(0, 0, -NoteWindowDays)
	l := &models.CustomerLedger{
		Customer: *cust,
		Sales:    []models.Transaction{},
		Notes:    []models.Transaction{},
	}
	for _, t := range history {
		switch t.Type {
		case models.TypeSell:
			l.Sales = append(l.Sales, t)
			l.TotalKg += t.Amount
			l.TotalAmount += t.TotalAmount
		case models.TypeDebitNote, models.TypeCreditNote:
			if !t.Date.Before(cutoff) {
				l.Notes = append(l.Notes, t)
			}
		}
	}
	return l, nil
}

// AddAdvance records money paid ahead by a customer. key guards against the
// same advance being posted twice.
func (s *Service) AddAdvance(ctx context.Context, id string, form models.AdvanceForm, key string) (*models.Customer, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate.Check(form); err != nil {
		return nil, err
	}

	adv := models.Advance{
		Amount:  ledger.ParseAmount(form.Amount),
		Details: form.Details,
	}
	var cust *models.Customer
	sub := &repository.Submission{Key: key, Kind: models.TypeAdvancePayment, Reference: id, Amount: adv.Amount}
	err = s.journaled(ctx, sub, func() (string, error) {
		var err error
		cust, err = s.api.AddAdvance(ctx, id, adv, key)
		return "", err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("customer_id", id).Infof("Advance of %s recorded", ledger.FormatAmount(adv.Amount))
	return cust, nil
}
