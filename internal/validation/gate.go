// Package validation is the submission gate: every form passes through it before
// anything is sent to the backend. A failure blocks the submission and carries the
// message to show the driver; inputs are never corrected.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"

	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/models"
)

// MaxBackdateDays is how far back a dated entry may go.
const MaxBackdateDays = 7

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrOverStock    = errors.New("sale exceeds available stock")
	ErrOdometer     = errors.New("odometer reading must increase")
	ErrEntryDate    = errors.New("entry date out of range")
)

// ValidationError is a rejected submission. Message is safe to show to the driver.
type ValidationError struct {
	Err     error
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Gate validates forms.
type Gate struct {
	validate *validator.Validate
	region   string
	loc      *time.Location
	now      func() time.Time
}

// NewGate builds a gate. region is the default phone region (e.g. "IN"), loc the
// driver's time zone used for calendar-day checks.
func NewGate(region string, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.Local
	}
	g := &Gate{
		validate: validator.New(),
		region:   region,
		loc:      loc,
		now:      time.Now,
	}
	g.validate.RegisterValidation("positive", func(fl validator.FieldLevel) bool {
		v, ok := ledger.ParseField(fl.Field().String())
		return ok && v > 0
	})
	g.validate.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return ValidateMobile(fl.Field().String(), g.region) == nil
	})
	return g
}

// SetClock replaces the time source.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Location is the time zone calendar checks run in.
func (g *Gate) Location() *time.Location {
	return g.loc
}

// Check runs the struct rules of a form and reports the first failure.
func (g *Gate) Check(form any) error {
	return g.report(form, g.validate.Struct(form))
}

// checkFields runs the struct rules of the named fields only
func (g *Gate) checkFields(form any, fields ...string) error {
	return g.report(form, g.validate.StructPartial(form, fields...))
}

func (g *Gate) report(form any, err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate %T: %w", form, err)
	}
	fe := fieldErrs[0]
	return &ValidationError{
		Err:     ErrInvalidInput,
		Field:   fe.Field(),
		Message: messageFor(form, fe),
	}
}

// messageFor looks up `msg_<tag>` then `msg` on the failing field.
func messageFor(form any, fe validator.FieldError) string {
	t := reflect.TypeOf(form)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if m := f.Tag.Get("msg_" + fe.Tag()); m != "" {
				return m
			}
			if m := f.Tag.Get("msg"); m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("%s is invalid.", fe.Field())
}

// ValidateMobile checks that number is a valid phone number for region.
func ValidateMobile(number, region string) error {
	p, err := libphonenumber.Parse(number, region)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

// SaleCheck is what the gate needs to know about a sale draft.
type SaleCheck struct {
	CustomerID     string  `validate:"required" msg:"Please select a customer."`
	Weight         float64 `validate:"gt=0" msg:"Please enter Weight and Rate."`
	Rate           string  `validate:"required" msg:"Please enter Weight and Rate."`
	AvailableStock float64
}

// CheckSale validates a sale before submission, including the stock bound.
func (g *Gate) CheckSale(s SaleCheck) error {
	if err := g.Check(s); err != nil {
		return err
	}
	if ledger.IsOverStock(s.Weight, s.AvailableStock) {
		return &ValidationError{
			Err:     ErrOverStock,
			Field:   "Weight",
			Message: fmt.Sprintf("You cannot sell more than available stock (%s KG).", ledger.FormatAmount(s.AvailableStock)),
		}
	}
	return nil
}

// CheckFuel validates a fuel form against the selected vehicle and returns the
// timestamp to record the entry under. The vehicle and odometer are checked
// before the slip, quantity and location.
func (g *Gate) CheckFuel(form models.FuelForm, vehicle *models.Vehicle) (time.Time, error) {
	if err := g.checkFields(form, "VehicleID"); err != nil {
		return time.Time{}, err
	}
	if vehicle == nil {
		return time.Time{}, &ValidationError{Err: ErrInvalidInput, Field: "VehicleID", Message: "Please select a vehicle."}
	}
	if err := g.checkFields(form, "CurrentKm"); err != nil {
		return time.Time{}, err
	}
	if ledger.ParseAmount(form.CurrentKm) <= vehicle.CurrentKm {
		return time.Time{}, &ValidationError{
			Err:     ErrOdometer,
			Field:   "CurrentKm",
			Message: "Current KM must be greater than Previous KM.",
		}
	}
	if err := g.Check(form); err != nil {
		return time.Time{}, err
	}
	return g.CheckEntryDate(form.Date)
}

// CheckEntryDate accepts calendar dates from MaxBackdateDays ago up to today.
// The returned time carries the chosen date with the current clock time.
func (g *Gate) CheckEntryDate(date string) (time.Time, error) {
	now := g.now().In(g.loc)
	if date == "" {
		return now, nil
	}
	d, err := time.ParseInLocation("2006-01-02", date, g.loc)
	if err != nil {
		return time.Time{}, &ValidationError{Err: ErrEntryDate, Field: "Date", Message: "Please enter a valid date (YYYY-MM-DD)."}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)
	if d.After(today) {
		return time.Time{}, &ValidationError{Err: ErrEntryDate, Field: "Date", Message: "Future dates are not allowed."}
	}
	if d.Before(today.AddDate(0, 0, -MaxBackdateDays)) {
		return time.Time{}, &ValidationError{Err: ErrEntryDate, Field: "Date", Message: "Cannot enter data older than 7 days."}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), g.loc), nil
}
