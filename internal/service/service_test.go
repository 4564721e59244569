package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/field-ledger/internal/backend"
	"github.com/Dan9191/field-ledger/internal/config"
	"github.com/Dan9191/field-ledger/internal/invoice"
	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/models"
	"github.com/Dan9191/field-ledger/internal/repository"
	"github.com/Dan9191/field-ledger/internal/validation"
)

type posted struct {
	kind  models.TransactionType
	entry any
	key   string
}

type fakeBackend struct {
	mu        sync.Mutex
	stock     float64
	customers []models.Customer
	vehicles  []models.Vehicle
	history   []models.Transaction
	entries   []posted
	failNext  error
	newCust   models.NewCustomer
	advance   models.Advance
	advances  []string
}

func (f *fakeBackend) Register(ctx context.Context, req models.RegisterRequest) error { return nil }

func (f *fakeBackend) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	return &models.DashboardSummary{TodayStock: f.stock}, nil
}

func (f *fakeBackend) DriverStock(ctx context.Context) (float64, error) { return f.stock, nil }

func (f *fakeBackend) Recent(ctx context.Context) ([]models.Transaction, error) {
	return f.history, nil
}

func (f *fakeBackend) History(ctx context.Context, t models.TransactionType, sub string) ([]models.Transaction, error) {
	return backend.FilterTransactions(f.history, t, sub), nil
}

func (f *fakeBackend) Vehicles(ctx context.Context) ([]models.Vehicle, error) { return f.vehicles, nil }

func (f *fakeBackend) AddEntry(ctx context.Context, kind models.TransactionType, entry any, key string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	f.entries = append(f.entries, posted{kind: kind, entry: entry, key: key})
	return &models.Transaction{ID: "tx-" + key, Type: kind}, nil
}

func (f *fakeBackend) Customers(ctx context.Context) ([]models.Customer, error) {
	return f.customers, nil
}

func (f *fakeBackend) CustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	for i := range f.customers {
		if f.customers[i].ID == id {
			c := f.customers[i]
			return &c, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (f *fakeBackend) AddCustomer(ctx context.Context, nc models.NewCustomer) (*models.Customer, error) {
	f.newCust = nc
	return &models.Customer{ID: "c-new", Name: nc.Name, Mobile: nc.Mobile, Balance: nc.Balance}, nil
}

func (f *fakeBackend) CustomerHistory(ctx context.Context, id string) ([]models.Transaction, error) {
	return f.history, nil
}

func (f *fakeBackend) AddAdvance(ctx context.Context, id string, adv models.Advance, key string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return nil, err
	}
	f.advance = adv
	f.advances = append(f.advances, key)
	return &models.Customer{ID: id, Balance: 100 - adv.Amount}, nil
}

func (f *fakeBackend) Notifications(ctx context.Context, unreadOnly bool) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeBackend) MarkNotificationRead(ctx context.Context, id string) error { return nil }

func (f *fakeBackend) MarkAllNotificationsRead(ctx context.Context) error { return nil }

type fakeSession struct{ user *models.User }

func (f *fakeSession) Login(ctx context.Context, mobile, password string) (*models.User, error) {
	return f.user, nil
}
func (f *fakeSession) Logout() error { return nil }
func (f *fakeSession) User() *models.User { return f.user }

type fakeUploader struct {
	err     error
	folders []string
}

func (f *fakeUploader) Upload(ctx context.Context, folder, path string) (string, error) {
	f.folders = append(f.folders, folder)
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.googleapis.com/slips/" + folder + "/x.jpg", nil
}

type fakeMailer struct {
	err  error
	sent []*invoice.Invoice
}

func (f *fakeMailer) Enabled() bool { return true }
func (f *fakeMailer) Share(inv *invoice.Invoice, to string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, inv)
	return nil
}

type fixture struct {
	svc      *Service
	api      *fakeBackend
	journal  *repository.MemoryJournal
	uploader *fakeUploader
	mailer   *fakeMailer
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	now := time.Date(2026, 10, 17, 15, 30, 0, 0, loc)

	gate := validation.NewGate("IN", loc)
	gate.SetClock(func() time.Time { return now })

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		api: &fakeBackend{
			stock:     10,
			customers: []models.Customer{{ID: "c1", Name: "Ramesh", Mobile: "9935283846", Balance: 100}},
			vehicles:  []models.Vehicle{{ID: "v1", Registration: "UP62 AB 1234", CurrentKm: 12000}},
		},
		journal:  repository.NewMemoryJournal(),
		uploader: &fakeUploader{},
		mailer:   &fakeMailer{},
		now:      now,
	}
	f.svc = NewService(Deps{
		API:      f.api,
		Journal:  f.journal,
		Gate:     gate,
		Uploader: f.uploader,
		Mailer:   f.mailer,
		Session:  &fakeSession{user: &models.User{ID: "u1", Name: "Ravi", Mobile: "9000000001"}},
	}, log, &config.Config{BusinessName: "Evergreen Foods"})
	f.svc.now = func() time.Time { return now }
	return f
}

func TestSaleFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.StartSale(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.AvailableStock)
	assert.Equal(t, 100.0, v.Bill.PreviousBalance)

	v, added, err := f.svc.AddSaleWeight(v.ID, "5")
	require.NoError(t, err)
	assert.True(t, added)

	v, added, err = f.svc.AddSaleWeight(v.ID, "6")
	assert.ErrorIs(t, err, ledger.ErrStockLimit)
	assert.False(t, added)
	assert.Equal(t, 5.0, v.Weight, "rejected increment leaves the draft unchanged")

	_, added, err = f.svc.AddSaleWeight(v.ID, "abc")
	require.NoError(t, err)
	assert.False(t, added)

	v, err = f.svc.UpdateSalePayment(v.ID, "100", "200", "100")
	require.NoError(t, err)
	assert.Equal(t, 500.0, v.Bill.BillTotal)
	assert.Equal(t, 300.0, v.Bill.NewBalance)

	preview, err := f.svc.SaleInvoice(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", preview.Driver.Name)

	res, err := f.svc.SubmitSale(ctx, v.ID, "ramesh@example.com")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "tx-"+v.ID, res.Transaction.ID)
	assert.Contains(t, res.InvoiceHTML, "₹ 300.00")

	require.Len(t, f.api.entries, 1)
	p := f.api.entries[0]
	assert.Equal(t, v.ID, p.key)
	entry := p.entry.(models.SellEntry)
	assert.Equal(t, 5.0, entry.Amount)
	assert.Equal(t, 100.0, entry.PreviousDue)
	assert.Equal(t, 500.0, entry.TotalAmount)
	assert.Equal(t, 300.0, entry.NewBalance)
	assert.Equal(t, res.Invoice.Bill.NewBalance, entry.NewBalance)
	assert.Equal(t, "Bill for 5KG @ ₹100, Paid: ₹300", entry.Details)

	require.Len(t, f.mailer.sent, 1)

	_, err = f.svc.Sale(v.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)

	subs, err := f.svc.Submissions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, repository.StatusCompleted, subs[0].Status)
}

func TestSubmitSaleRejectedByGate(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.StartSale(context.Background(), "c1")
	require.NoError(t, err)
	_, _, err = f.svc.AddSaleWeight(v.ID, "2")
	require.NoError(t, err)

	_, err = f.svc.SubmitSale(context.Background(), v.ID, "")
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter Weight and Rate.", verr.Message)
	assert.Empty(t, f.api.entries)

	_, err = f.svc.Sale(v.ID)
	assert.NoError(t, err, "draft survives a rejected submission")
}

func TestSubmitSaleBackendFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v, err := f.svc.StartSale(ctx, "c1")
	require.NoError(t, err)
	_, _, _ = f.svc.AddSaleWeight(v.ID, "2")
	_, _ = f.svc.UpdateSalePayment(v.ID, "120", "", "")

	f.api.failNext = &backend.APIError{Status: 502}
	_, err = f.svc.SubmitSale(ctx, v.ID, "")
	require.Error(t, err)

	_, err = f.svc.Sale(v.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitSale(ctx, v.ID, "")
	require.NoError(t, err, "a failed submission may be retried")
	require.Len(t, f.api.entries, 1)
	assert.Equal(t, 240.0, f.api.entries[0].entry.(models.SellEntry).TotalAmount)
}

func TestSubmitSaleInFlight(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.StartSale(context.Background(), "c1")
	require.NoError(t, err)

	release, err := f.svc.acquire(v.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitSale(context.Background(), v.ID, "")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	release()

	_, err = f.svc.SubmitSale(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestSubmitSaleShareFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")
	v, _ := f.svc.StartSale(context.Background(), "c1")
	_, _, _ = f.svc.AddSaleWeight(v.ID, "1")
	_, _ = f.svc.UpdateSalePayment(v.ID, "100", "100", "")

	res, err := f.svc.SubmitSale(context.Background(), v.ID, "ramesh@example.com")
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
}

func TestSubmitSaleRenderFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.svc.render = func(*invoice.Invoice) (string, error) {
		return "", errors.New("write failed")
	}
	v, _ := f.svc.StartSale(context.Background(), "c1")
	_, _, _ = f.svc.AddSaleWeight(v.ID, "1")
	_, _ = f.svc.UpdateSalePayment(v.ID, "100", "100", "")

	res, err := f.svc.SubmitSale(context.Background(), v.ID, "")
	require.NoError(t, err, "the backend accepted the sale")
	require.NotNil(t, res.Transaction)
	assert.Empty(t, res.InvoiceHTML)
	assert.NotEmpty(t, res.InvoiceNo)
	assert.Equal(t, []string{"Bill saved, but the invoice could not be generated."}, res.Warnings)
	assert.Len(t, f.api.entries, 1)

	_, err = f.svc.Sale(v.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestSaleInvoiceUsesConfiguredZone(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC) }
	v, err := f.svc.StartSale(context.Background(), "c1")
	require.NoError(t, err)

	inv, err := f.svc.SaleInvoice(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", inv.IssuedAt.Location().String())
	assert.Equal(t, 15, inv.IssuedAt.Hour())
	assert.Equal(t, 30, inv.IssuedAt.Minute())
	assert.Contains(t, inv.Text(), "03:30:00 PM")
}

func validFuel() models.FuelForm {
	return models.FuelForm{
		VehicleID: "v1",
		CurrentKm: "12500",
		SlipPath:  "/tmp/slip.jpg",
		Quantity:  "30",
		Rate:      "94.50",
		Amount:    "2835.00",
		Location:  "NH 31, Jaunpur, Uttar Pradesh",
		FuelType:  "Diesel",
		Date:      "2026-10-15",
	}
}

func TestSubmitFuel(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.SubmitFuel(context.Background(), validFuel(), "k1")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	entry := f.api.entries[0].entry.(models.FuelEntry)
	assert.Equal(t, 30.0, entry.Amount)
	assert.Equal(t, models.UnitLitre, entry.Unit)
	assert.Equal(t, 12000.0, entry.PreviousKm)
	assert.Equal(t, 12500.0, entry.CurrentKm)
	assert.Equal(t, "UP62 AB 1234", entry.VehicleReg)
	assert.Equal(t, "₹2835.00 @ ₹94.50/L", entry.Details)
	assert.Equal(t, 15, entry.Date.Day())
	assert.Equal(t, 15, entry.Date.Hour())
	assert.Contains(t, entry.ImageURL, FolderFuelSlips)
}

func TestSubmitFuelUploadFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = errors.New("bucket unreachable")

	res, err := f.svc.SubmitFuel(context.Background(), validFuel(), "k1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Image upload failed. Entry will be saved without image."}, res.Warnings)
	assert.Empty(t, f.api.entries[0].entry.(models.FuelEntry).ImageURL)
}

func TestSubmitFuelUnknownVehicle(t *testing.T) {
	f := newFixture(t)
	form := validFuel()
	form.VehicleID = "v9"

	_, err := f.svc.SubmitFuel(context.Background(), form, "k1")
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please select a vehicle.", verr.Message)
}

func TestDuplicateKeyRejected(t *testing.T) {
	f := newFixture(t)
	form := models.BuyForm{CompanyName: "Venky's", Kg: "250", SlipPath: "/tmp/b.jpg", ItemType: models.ItemBoiler}

	_, err := f.svc.SubmitBuy(context.Background(), form, "same")
	require.NoError(t, err)
	_, err = f.svc.SubmitBuy(context.Background(), form, "same")
	assert.ErrorIs(t, err, repository.ErrDuplicateSubmission)
	assert.Len(t, f.api.entries, 1)

	entry := f.api.entries[0].entry.(models.BuyEntry)
	assert.Equal(t, "Boiler from Venky's", entry.Details)
	assert.Equal(t, []string{FolderBuySlips}, f.uploader.folders)
}

func TestSubmitPalti(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitPalti(context.Background(), models.PaltiForm{
		TransferDriverName: "Suresh", Kg: "40", Action: models.PaltiAdd, ItemType: models.ItemChiller,
	}, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Stock In - Suresh", f.api.entries[0].entry.(models.PaltiEntry).Details)
}

func TestSubmitMortality(t *testing.T) {
	f := newFixture(t)
	form := models.MortalityForm{Kg: "3.2", ImagePath: "/tmp/m.jpg", Coords: &models.Coords{Lat: 25.753456, Lng: 82.689123}, ItemType: models.ItemBoiler}

	f.uploader.err = errors.New("offline")
	_, err := f.svc.SubmitMortality(context.Background(), form, "k1")
	assert.ErrorIs(t, err, ErrSlipUpload)
	assert.Empty(t, f.api.entries, "mortality needs its photo")

	f.uploader.err = nil
	_, err = f.svc.SubmitMortality(context.Background(), form, "k2")
	require.NoError(t, err)
	entry := f.api.entries[0].entry.(models.WeightLossEntry)
	assert.Equal(t, models.SubTypeMortality, entry.SubType)
	assert.Equal(t, "25.75346, 82.68912", entry.Location)
	assert.Contains(t, entry.ImageURL, "https://")
}

func TestSubmitWasteAndShopBuy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitWaste(ctx, models.WasteForm{Kg: "1.5", ItemType: models.ItemChiller}, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Waste: Chiller", f.api.entries[0].entry.(models.WeightLossEntry).Details)

	_, err = f.svc.SubmitShopBuy(ctx, models.ShopBuyForm{ShopName: "Raju", Weight: "12.5", Price: "180", ItemType: "Boiler"}, "k2")
	require.NoError(t, err)
	shop := f.api.entries[1].entry.(models.ShopBuyEntry)
	assert.Equal(t, 2250.0, shop.TotalAmount)
	assert.Equal(t, "Shop: Raju - Boiler", shop.Details)
}

func TestDeriveFuel(t *testing.T) {
	f := newFixture(t)
	state, derived, err := f.svc.DeriveFuel(ledger.FuelState{Quantity: "10", Rate: "90"}, "amount", "1000")
	require.NoError(t, err)
	assert.Equal(t, "rate", derived)
	assert.Equal(t, "100.00", state.Rate)

	_, _, err = f.svc.DeriveFuel(ledger.FuelState{}, "litres", "1")
	assert.Error(t, err)
}

func TestCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.customers = append(f.api.customers, models.Customer{ID: "c2", Name: "Suresh Kumar", Mobile: "9450011223"})

	found, err := f.svc.SearchCustomers(ctx, "SURESH")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "c2", found[0].ID)

	found, _ = f.svc.SearchCustomers(ctx, "99352")
	require.Len(t, found, 1)
	assert.Equal(t, "c1", found[0].ID)

	found, _ = f.svc.SearchCustomers(ctx, "")
	assert.Len(t, found, 2)

	cust, err := f.svc.AddCustomer(ctx, models.CustomerForm{Name: "Mohan", Mobile: "9935283846", OpeningBalance: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.api.newCust.Balance)
	assert.Equal(t, "c-new", cust.ID)

	_, err = f.svc.AddAdvance(ctx, "c1", models.AdvanceForm{Amount: "-5"}, "a0")
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
	cust, err = f.svc.AddAdvance(ctx, "c1", models.AdvanceForm{Amount: "40"}, "a1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, cust.Balance)
}

func TestCustomerLedger(t *testing.T) {
	f := newFixture(t)
	f.api.history = []models.Transaction{
		{ID: "s1", Type: models.TypeSell, Amount: 5, TotalAmount: 500, Date: f.now.AddDate(0, 0, -30)},
		{ID: "s2", Type: models.TypeSell, Amount: 2.5, TotalAmount: 300, Date: f.now},
		{ID: "n1", Type: models.TypeDebitNote, Date: f.now.AddDate(0, 0, -2)},
		{ID: "n2", Type: models.TypeCreditNote, Date: f.now.AddDate(0, 0, -8)},
		{ID: "b1", Type: models.TypeBuy, Amount: 100, Date: f.now},
	}

	l, err := f.svc.CustomerLedger(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, l.Sales, 2)
	assert.Equal(t, 7.5, l.TotalKg)
	assert.Equal(t, 800.0, l.TotalAmount)
	require.Len(t, l.Notes, 1)
	assert.Equal(t, "n1", l.Notes[0].ID)

	_, err = f.svc.CustomerLedger(context.Background(), "c9")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.api.history = []models.Transaction{{ID: "t1", Type: models.TypeFuel}}
	d, err := f.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.0, d.Summary.TodayStock)
	assert.Len(t, d.Recent, 1)
}

func TestAdvanceSubmittedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := models.AdvanceForm{Amount: "40", Details: "cash"}

	f.api.failNext = errors.New("connection reset")
	_, err := f.svc.AddAdvance(ctx, "c1", form, "adv-1")
	require.Error(t, err)

	_, err = f.svc.AddAdvance(ctx, "c1", form, "adv-1")
	require.NoError(t, err, "a failed advance may be retried")

	_, err = f.svc.AddAdvance(ctx, "c1", form, "adv-1")
	assert.ErrorIs(t, err, repository.ErrDuplicateSubmission)

	release, err := f.svc.acquire("adv-2")
	require.NoError(t, err)
	_, err = f.svc.AddAdvance(ctx, "c1", form, "adv-2")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	release()

	assert.Equal(t, []string{"adv-1"}, f.api.advances)

	subs, err := f.svc.Submissions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, models.TypeAdvancePayment, subs[0].Kind)
	assert.Equal(t, repository.StatusCompleted, subs[0].Status)
	assert.Equal(t, "c1", subs[0].Reference)
}
