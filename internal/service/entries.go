package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/models"
	"github.com/Dan9191/field-ledger/internal/slips"
)

// Storage folders for proof photos
const (
	FolderFuelSlips  = "fuel-slips"
	FolderBuySlips   = "buy-slips"
	FolderWeightLoss = "weight-loss"
)

// DeriveFuel applies one edit to the fuel triple and returns the new state and the
// field that was derived, if any.
func (s *Service) DeriveFuel(state ledger.FuelState, field, value string) (ledger.FuelState, string, error) {
	f, err := ledger.ParseFuelField(field)
	if err != nil {
		return state, "", err
	}
	derived, ok := state.Edit(f, value)
	if !ok {
		return state, "", nil
	}
	return state, derived.String(), nil
}

// uploadSlip stores an optional photo. A failure is reported as a warning.
func (s *Service) uploadSlip(ctx context.Context, folder, path string) (string, []string) {
	if path == "" {
		return "", nil
	}
	url, err := s.uploader.Upload(ctx, folder, path)
	if err != nil {
		if !errors.Is(err, slips.ErrUploadDisabled) {
			s.log.Errorf("Image upload failed: %v", err)
		}
		return "", []string{"Image upload failed. Entry will be saved without image."}
	}
	return url, nil
}

func (s *Service) findVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	if id == "" {
		return nil, nil
	}
	vs, err := s.api.Vehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicles: %w", err)
	}
	for i := range vs {
		if vs[i].ID == id {
			return &vs[i], nil
		}
	}
	return nil, nil
}

// SubmitFuel validates a fuel fill against the vehicle's last odometer reading and posts it
func (s *Service) SubmitFuel(ctx context.Context, form models.FuelForm, key string) (*EntryResult, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	vehicle, err := s.findVehicle(ctx, form.VehicleID)
	if err != nil {
		return nil, err
	}
	at, err := s.gate.CheckFuel(form, vehicle)
	if err != nil {
		return nil, err
	}

	imageURL, warnings := s.uploadSlip(ctx, FolderFuelSlips, form.SlipPath)
	litres := ledger.ParseAmount(form.Quantity)
	entry := models.FuelEntry{
		Entry: models.Entry{
			Type:    models.TypeFuel,
			Amount:  litres,
			Unit:    models.UnitLitre,
			Date:    at,
			Details: fmt.Sprintf("₹%s @ ₹%s/L", form.Amount, form.Rate),
		},
		VehicleID:      vehicle.ID,
		VehicleReg:     vehicle.Registration,
		PreviousKm:     vehicle.CurrentKm,
		CurrentKm:      ledger.ParseAmount(form.CurrentKm),
		FuelType:       form.FuelType,
		Rate:           ledger.ParseAmount(form.Rate),
		Location:       form.Location,
		LocationCoords: form.Coords,
		ImageURL:       imageURL,
	}

	tx, err := s.submit(ctx, models.TypeFuel, key, vehicle.ID, litres, entry)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Transaction: tx, Warnings: warnings}, nil
}

// SubmitBuy records a purchase from a supplier company
func (s *Service) SubmitBuy(ctx context.Context, form models.BuyForm, key string) (*EntryResult, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate.Check(form); err != nil {
		return nil, err
	}

	imageURL, warnings := s.uploadSlip(ctx, FolderBuySlips, form.SlipPath)
	kg := ledger.ParseAmount(form.Kg)
	entry := models.BuyEntry{
		Entry: models.Entry{
			Type:    models.TypeBuy,
			Amount:  kg,
			Unit:    models.UnitKG,
			Date:    s.now(),
			Details: fmt.Sprintf("%s from %s", form.ItemType, form.CompanyName),
		},
		CompanyName: form.CompanyName,
		ItemType:    form.ItemType,
		ImageURL:    imageURL,
	}

	tx, err := s.submit(ctx, models.TypeBuy, key, form.CompanyName, kg, entry)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Transaction: tx, Warnings: warnings}, nil
}

// SubmitPalti records stock moved to or from another driver
func (s *Service) SubmitPalti(ctx context.Context, form models.PaltiForm, key string) (*EntryResult, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate.Check(form); err != nil {
		return nil, err
	}

	direction := "Stock Out"
	if form.Action == models.PaltiAdd {
		direction = "Stock In"
	}
	kg := ledger.ParseAmount(form.Kg)
	entry := models.PaltiEntry{
		Entry: models.Entry{
			Type:    models.TypePalti,
			Amount:  kg,
			Unit:    models.UnitKG,
			Date:    s.now(),
			Details: fmt.Sprintf("%s - %s", direction, form.TransferDriverName),
		},
		PaltiAction:        form.Action,
		TransferDriverName: form.TransferDriverName,
		ItemType:           form.ItemType,
	}

	tx, err := s.submit(ctx, models.TypePalti, key, form.TransferDriverName, kg, entry)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Transaction: tx}, nil
}

// SubmitMortality records dead birds. The photo is proof, so a failed upload aborts.
func (s *Service) SubmitMortality(ctx context.Context, form models.MortalityForm, key string) (*EntryResult, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate.Check(form); err != nil {
		return nil, err
	}

	imageURL, err := s.uploader.Upload(ctx, FolderWeightLoss, form.ImagePath)
	if err != nil {
		s.log.Errorf("Mortality photo upload failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSlipUpload, err)
	}

	kg := ledger.ParseAmount(form.Kg)
	entry := models.WeightLossEntry{
		Entry: models.Entry{
			Type:    models.TypeWeightLoss,
			SubType: models.SubTypeMortality,
			Amount:  kg,
			Unit:    models.UnitKG,
			Date:    s.now(),
			Details: "Mortality: " + form.ItemType,
		},
		ItemType:       form.ItemType,
		ImageURL:       imageURL,
		Location:       fmt.Sprintf("%.5f, %.5f", form.Coords.Lat, form.Coords.Lng),
		LocationCoords: form.Coords,
	}

	tx, err := s.submit(ctx, models.TypeWeightLoss, key, models.SubTypeMortality, kg, entry)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Transaction: tx}, nil
}

// SubmitWaste records spoilage
func (s *Service) SubmitWaste(ctx context.Context, form models.WasteForm, key string) (*EntryResult, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate.Check(form); err != nil {
		return nil, err
	}

	kg := ledger.ParseAmount(form.Kg)
	entry := models.WeightLossEntry{
		Entry: models.Entry{
			Type:    models.TypeWeightLoss,
			SubType: models.SubTypeWaste,
			Amount:  kg,
			Unit:    models.UnitKG,
			Date:    s.now(),
			Details: "Waste: " + form.ItemType,
		},
		ItemType: form.ItemType,
	}

	tx, err := s.submit(ctx, models.TypeWeightLoss, key, models.SubTypeWaste, kg, entry)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Transaction: tx}, nil
}

// SubmitShopBuy records a purchase from a shop, priced per kilogram
func (s *Service) SubmitShopBuy(ctx context.Context, form models.ShopBuyForm, key string) (*EntryResult, error) {
	release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate.Check(form); err != nil {
		return nil, err
	}

	weight := ledger.ParseAmount(form.Weight)
	price := ledger.ParseAmount(form.Price)
	entry := models.ShopBuyEntry{
		Entry: models.Entry{
			Type:    models.TypeShopBuy,
			Amount:  weight,
			Unit:    models.UnitKG,
			Date:    s.now(),
			Details: fmt.Sprintf("Shop: %s - %s", form.ShopName, form.ItemType),
		},
		CompanyName: form.ShopName,
		ItemType:    form.ItemType,
		Rate:        price,
		TotalAmount: ledger.ComputeTotal(weight, price),
	}

	tx, err := s.submit(ctx, models.TypeShopBuy, key, form.ShopName, weight, entry)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Transaction: tx}, nil
}
