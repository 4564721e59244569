package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/field-ledger/internal/invoice"
	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/models"
	"github.com/Dan9191/field-ledger/internal/validation"
)

type saleDraft struct {
	id       string
	customer models.Customer
	rate     string
	cash     string
	upi      string
	ledger.SaleDraft
}

// SaleView is the sale screen: inputs, stock snapshot and the live reconciliation
type SaleView struct {
	ID             string                `json:"id"`
	Customer       models.Customer       `json:"customer"`
	AvailableStock float64               `json:"availableStock"`
	Weight         float64               `json:"weight"`
	Rate           string                `json:"rate"`
	Cash           string                `json:"cash"`
	UPI            string                `json:"upi"`
	Bill           ledger.Reconciliation `json:"bill"`
	OverStock      bool                  `json:"overStock"`
}

// SaleResult is a submitted sale and its invoice
type SaleResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Invoice     *invoice.Invoice    `json:"-"`
	InvoiceNo   string              `json:"invoiceNo"`
	InvoiceHTML string              `json:"invoiceHtml"`
	Warnings    []string            `json:"warnings,omitempty"`
}

func (d *saleDraft) view() *SaleView {
	return &SaleView{
		ID:             d.id,
		Customer:       d.customer,
		AvailableStock: d.AvailableStock,
		Weight:         d.AccumulatedWeight,
		Rate:           d.rate,
		Cash:           d.cash,
		UPI:            d.upi,
		Bill:           d.Reconcile(),
		OverStock:      d.OverStock(),
	}
}

// StartSale opens a draft for a customer against the driver's current stock
func (s *Service) StartSale(ctx context.Context, customerID string) (*SaleView, error) {
	cust, err := s.api.CustomerByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	stock, err := s.api.DriverStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}

	d := &saleDraft{
		id:        uuid.NewString(),
		customer:  *cust,
		SaleDraft: *ledger.NewSaleDraft(stock, cust.Balance),
	}
	s.mu.Lock()
	s.drafts[d.id] = d
	v := d.view()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"draft_id": d.id, "customer_id": cust.ID}).Debug("Sale started")
	return v, nil
}

// withDraft runs fn on a draft under the service lock
func (s *Service) withDraft(id string, fn func(d *saleDraft) error) (*SaleView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if err := fn(d); err != nil {
		return d.view(), err
	}
	return d.view(), nil
}

// AddSaleWeight adds one weighed increment. An increment that would exceed the
// stock snapshot is rejected with ledger.ErrStockLimit and the draft is unchanged.
func (s *Service) AddSaleWeight(id, increment string) (*SaleView, bool, error) {
	var added bool
	v, err := s.withDraft(id, func(d *saleDraft) error {
		var err error
		added, err = d.AddWeightInput(increment)
		return err
	})
	return v, added, err
}

// ClearSaleWeight resets the accumulated weight
func (s *Service) ClearSaleWeight(id string) (*SaleView, error) {
	return s.withDraft(id, func(d *saleDraft) error {
		d.ClearWeight()
		return nil
	})
}

// UpdateSalePayment sets rate and payments from raw input
func (s *Service) UpdateSalePayment(id, rate, cash, upi string) (*SaleView, error) {
	return s.withDraft(id, func(d *saleDraft) error {
		d.rate, d.cash, d.upi = rate, cash, upi
		d.SetPayment(rate, cash, upi)
		return nil
	})
}

// Sale returns the current state of a draft
func (s *Service) Sale(id string) (*SaleView, error) {
	return s.withDraft(id, func(*saleDraft) error { return nil })
}

// DiscardSale drops a draft
func (s *Service) DiscardSale(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrDraftNotFound
	}
	delete(s.drafts, id)
	return nil
}

// SaleInvoice previews the invoice the draft would produce
func (s *Service) SaleInvoice(id string) (*invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return s.invoiceFor(d), nil
}

func (s *Service) invoiceFor(d *saleDraft) *invoice.Invoice {
	var driver invoice.Party
	if u := s.session.User(); u != nil {
		driver = invoice.Party{Name: u.Name, Mobile: u.Mobile}
	}
	cust := invoice.Party{Name: d.customer.Name, Mobile: d.customer.Mobile, Address: d.customer.Address}
	return invoice.New(s.business, driver, cust, d.Reconcile(), s.now().In(s.gate.Location()))
}

func saleDetails(r ledger.Reconciliation) string {
	return fmt.Sprintf("Bill for %sKG @ ₹%s, Paid: ₹%s",
		strconv.FormatFloat(r.Weight, 'f', -1, 64),
		strconv.FormatFloat(r.Rate, 'f', -1, 64),
		strconv.FormatFloat(r.Paid(), 'f', -1, 64))
}

// SubmitSale validates and posts the draft. The posted figures and the invoice come
// from one reconciliation. On success the draft is discarded and, if shareTo is set,
// the invoice is emailed; a failed email is only a warning.
func (s *Service) SubmitSale(ctx context.Context, id, shareTo string) (*SaleResult, error) {
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	d, ok := s.drafts[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrDraftNotFound
	}
	snapshot := *d
	inv := s.invoiceFor(&snapshot)
	s.mu.Unlock()

	err = s.gate.CheckSale(validation.SaleCheck{
		CustomerID:     snapshot.customer.ID,
		Weight:         snapshot.AccumulatedWeight,
		Rate:           snapshot.rate,
		AvailableStock: snapshot.AvailableStock,
	})
	if err != nil {
		return nil, err
	}

	bill := inv.Bill
	entry := models.SellEntry{
		Entry: models.Entry{
			Type:    models.TypeSell,
			Amount:  bill.Weight,
			Unit:    models.UnitKG,
			Date:    inv.IssuedAt,
			Details: saleDetails(bill),
		},
		CustomerID:   snapshot.customer.ID,
		CustomerName: snapshot.customer.Name,
		PreviousDue:  bill.PreviousBalance,
		TotalAmount:  bill.BillTotal,
		PaymentCash:  bill.Cash,
		PaymentUPI:   bill.UPI,
		NewBalance:   bill.NewBalance,
	}

	tx, err := s.submit(ctx, models.TypeSell, id, snapshot.customer.ID, bill.Weight, entry)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()

	res := &SaleResult{Transaction: tx, Invoice: inv, InvoiceNo: inv.Number}
	html, err := s.render(inv)
	if err != nil {
		s.log.WithField("transaction_id", tx.ID).Errorf("Invoice %s not rendered: %v", inv.Number, err)
		res.Warnings = append(res.Warnings, "Bill saved, but the invoice could not be generated.")
	} else {
		res.InvoiceHTML = html
	}

	if shareTo != "" {
		if s.mailer == nil || !s.mailer.Enabled() {
			res.Warnings = append(res.Warnings, "Invoice sharing is not configured.")
		} else if err := s.mailer.Share(inv, shareTo); err != nil {
			s.log.Warnf("Invoice %s not shared: %v", inv.Number, err)
			res.Warnings = append(res.Warnings, "Bill saved, but the invoice could not be emailed.")
		}
	}
	return res, nil
}
