package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"10", 10, true},
		{" 1000.700 ", 1000.7, true},
		{"-50", -50, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"10kg", 10, true},
		{"1,000", 1, true},
		{".5", 0.5, true},
		{"2.5e2 litres", 250, true},
		{"1e", 1, true},
		{"-", 0, false},
		{"kg10", 0, false},
		{"1e400", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseField(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, ParseAmount(tt.in))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "100.00", FormatAmount(100))
	assert.Equal(t, "-50.00", FormatAmount(-50))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "1.00", FormatAmount(1.005), "1.005 is stored just below the half")
	assert.Equal(t, "-1.00", FormatAmount(-1.005))
	assert.Equal(t, "0.13", FormatAmount(0.125), "exact halves round up")
	assert.Equal(t, "2.67", FormatAmount(2.675))
	assert.Equal(t, "0.30", FormatAmount(0.1+0.2))
	assert.Equal(t, "1179.50", FormatAmount(12.5*94.36))
}

func TestCanAdd(t *testing.T) {
	tests := []struct {
		name        string
		accumulated float64
		increment   float64
		available   float64
		want        bool
	}{
		{"well within stock", 0, 300, 500, true},
		{"exactly the stock", 200, 300, 500, true},
		{"inside epsilon", 0, 500.0005, 500, true},
		{"beyond epsilon", 0, 500.002, 500, false},
		{"sum beyond stock", 300, 250, 500, false},
		{"no stock at all", 0, 1, 0, false},
		{"float noise absorbed", 0.1, 0.2, 0.3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdd(tt.accumulated, tt.increment, tt.available))
			// same inputs, same answer
			assert.Equal(t, tt.want, CanAdd(tt.accumulated, tt.increment, tt.available))
		})
	}
}

func TestCanAddMatchesBound(t *testing.T) {
	for _, available := range []float64{0, 0.5, 10, 499.999, 500, 1000.7} {
		for _, accumulated := range []float64{0, 0.25, 100, 499} {
			for _, increment := range []float64{0.001, 0.1, 1, 250, 1000} {
				exceeds := accumulated+increment > available+0.001
				assert.Equal(t, !exceeds, CanAdd(accumulated, increment, available),
					"accumulated=%v increment=%v available=%v", accumulated, increment, available)
			}
		}
	}
}

func TestSaleDraftAddWeight(t *testing.T) {
	d := NewSaleDraft(500, 0)

	added, err := d.AddWeight(300)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 300.0, d.AccumulatedWeight)

	added, err = d.AddWeight(250)
	require.Error(t, err)
	assert.False(t, added)
	assert.True(t, errors.Is(err, ErrStockLimit))
	var limitErr *StockLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 300.0, limitErr.Accumulated)
	assert.Equal(t, 250.0, limitErr.Increment)
	assert.Equal(t, 500.0, limitErr.Available)
	assert.Equal(t, 300.0, d.AccumulatedWeight)

	added, err = d.AddWeight(200)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 500.0, d.AccumulatedWeight)
	assert.False(t, d.OverStock())
}

func TestSaleDraftIgnoresNonPositiveIncrements(t *testing.T) {
	d := NewSaleDraft(10, 0)

	for _, in := range []string{"", "0", "-5", "abc"} {
		added, err := d.AddWeightInput(in)
		assert.NoError(t, err, in)
		assert.False(t, added, in)
	}
	assert.Equal(t, 0.0, d.AccumulatedWeight)
}

func TestSaleDraftClearWeight(t *testing.T) {
	d := NewSaleDraft(10, 0)
	_, err := d.AddWeightInput("4.5")
	require.NoError(t, err)

	d.ClearWeight()
	assert.Equal(t, 0.0, d.AccumulatedWeight)
}

func TestComputeTotal(t *testing.T) {
	assert.Equal(t, 0.0, ComputeTotal(0, 180))
	assert.Equal(t, 0.0, ComputeTotal(12.5, 0))
	assert.Equal(t, 2250.0, ComputeTotal(12.5, 180))
	assert.Equal(t, 1.1*3.3, ComputeTotal(1.1, 3.3))
	assert.Equal(t, 0.0, ComputeTotal(ParseAmount(""), ParseAmount("120")))
}

func TestComputeNewBalance(t *testing.T) {
	tests := []struct {
		name                  string
		prev, bill, cash, upi float64
		want                  float64
	}{
		{"owes more", 100, 500, 200, 100, 300},
		{"credit preserved", -50, 0, 0, 0, -50},
		{"overpaid goes negative", 0, 100, 150, 0, -50},
		{"nothing happens", 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeNewBalance(tt.prev, tt.bill, tt.cash, tt.upi))
		})
	}
}

func TestReconcile(t *testing.T) {
	r := Reconcile(100, 2.5, 200, 200, 100)

	assert.Equal(t, 500.0, r.BillTotal)
	assert.Equal(t, 300.0, r.NewBalance)
	assert.Equal(t, 300.0, r.Paid())
	assert.Equal(t, ComputeNewBalance(100, ComputeTotal(2.5, 200), 200, 100), r.NewBalance)
}

func TestSaleDraftReconcile(t *testing.T) {
	d := NewSaleDraft(500, 100)
	_, err := d.AddWeight(2.5)
	require.NoError(t, err)
	d.SetPayment("200", "200", "")

	r := d.Reconcile()
	assert.Equal(t, 500.0, r.BillTotal)
	assert.Equal(t, 0.0, r.UPI)
	assert.Equal(t, 400.0, r.NewBalance)
}

func TestFuelStateEdit(t *testing.T) {
	tests := []struct {
		name        string
		start       FuelState
		field       FuelField
		value       string
		want        FuelState
		wantDerived FuelField
		wantOK      bool
	}{
		{
			name:        "quantity derives amount",
			start:       FuelState{Rate: "90"},
			field:       FuelQuantity,
			value:       "10",
			want:        FuelState{Quantity: "10", Rate: "90", Amount: "900.00"},
			wantDerived: FuelAmount,
			wantOK:      true,
		},
		{
			name:        "rate derives amount",
			start:       FuelState{Quantity: "12.5"},
			field:       FuelRate,
			value:       "94.36",
			want:        FuelState{Quantity: "12.5", Rate: "94.36", Amount: "1179.50"},
			wantDerived: FuelAmount,
			wantOK:      true,
		},
		{
			name:        "amount prefers solving rate",
			start:       FuelState{Quantity: "10", Rate: "90", Amount: "900.00"},
			field:       FuelAmount,
			value:       "1000",
			want:        FuelState{Quantity: "10", Rate: "100.00", Amount: "1000"},
			wantDerived: FuelRate,
			wantOK:      true,
		},
		{
			name:        "amount falls back to quantity",
			start:       FuelState{Rate: "90"},
			field:       FuelAmount,
			value:       "900",
			want:        FuelState{Quantity: "10.00", Rate: "90", Amount: "900"},
			wantDerived: FuelQuantity,
			wantOK:      true,
		},
		{
			name:        "zero quantity falls back to quantity",
			start:       FuelState{Quantity: "0", Rate: "50"},
			field:       FuelAmount,
			value:       "100",
			want:        FuelState{Quantity: "2.00", Rate: "50", Amount: "100"},
			wantDerived: FuelQuantity,
			wantOK:      true,
		},
		{
			name:        "derived rate rounds the stored binary value",
			start:       FuelState{Quantity: "2", Rate: "1"},
			field:       FuelAmount,
			value:       "2.01",
			want:        FuelState{Quantity: "2", Rate: "1.00", Amount: "2.01"},
			wantDerived: FuelRate,
			wantOK:      true,
		},
		{
			name:        "derived amount rounds the stored binary value",
			start:       FuelState{Rate: "1.005"},
			field:       FuelQuantity,
			value:       "1",
			want:        FuelState{Quantity: "1", Rate: "1.005", Amount: "1.00"},
			wantDerived: FuelAmount,
			wantOK:      true,
		},
		{
			name:  "amount with nothing usable",
			start: FuelState{Quantity: "", Rate: "0"},
			field: FuelAmount,
			value: "100",
			want:  FuelState{Quantity: "", Rate: "0", Amount: "100"},
		},
		{
			name:  "unparsable quantity leaves amount",
			start: FuelState{Rate: "90", Amount: "450.00"},
			field: FuelQuantity,
			value: "abc",
			want:  FuelState{Quantity: "abc", Rate: "90", Amount: "450.00"},
		},
		{
			name:  "cleared amount derives nothing",
			start: FuelState{Quantity: "10", Rate: "90", Amount: "900.00"},
			field: FuelAmount,
			value: "",
			want:  FuelState{Quantity: "10", Rate: "90", Amount: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.start
			derived, ok := s.Edit(tt.field, tt.value)
			assert.Equal(t, tt.want, s)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantDerived, derived)
			}
		})
	}
}

func TestFuelStateSingleStep(t *testing.T) {
	s := FuelState{Quantity: "10", Rate: "90"}

	// editing quantity recomputes amount only; rate stays what the user typed
	s.Edit(FuelQuantity, "20")
	assert.Equal(t, "90", s.Rate)
	assert.Equal(t, "1800.00", s.Amount)
}

func TestParseFuelField(t *testing.T) {
	for _, f := range []FuelField{FuelQuantity, FuelRate, FuelAmount} {
		got, err := ParseFuelField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFuelField("litres")
	assert.Error(t, err)
}
