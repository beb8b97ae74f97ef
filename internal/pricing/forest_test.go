package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/intellifone/appraisal/internal/models"
)

// syntheticTable builds n rows where price is a clean function of storage,
// alternating a few other fields for variety.
func syntheticTable(n int) FeatureTable {
	table := FeatureTable{Columns: featureColumns}
	storages := []float64{32, 64, 128, 256}
	for i := 0; i < n; i++ {
		storage := storages[i%len(storages)]
		l := models.Listing{
			Model:          "Pixel 7a",
			Condition:      8,
			ConditionScore: 15 + float64(i%5),
			PTAApproved:    true,
			CameraLensOK:   true,
			FingerprintOK:  i%2 == 0,
		}
		table.Rows = append(table.Rows, buildVector(8, storage, l))
		table.Prices = append(table.Prices, 20000+storage*400)
	}
	return table
}

func TestTrainInsufficientData(t *testing.T) {
	table := syntheticTable(10)

	_, err := Train(table, TrainerConfig{Trees: 10, Seed: 42, MinRows: 15})

	var ide *models.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("Train error = %v, want InsufficientDataError", err)
	}
	if ide.Rows != 10 || ide.Min != 15 {
		t.Errorf("InsufficientDataError = %+v, want rows 10, min 15", ide)
	}
}

func TestTrainDropsMissingPrices(t *testing.T) {
	table := syntheticTable(20)
	for i := 10; i < 20; i++ {
		table.Prices[i] = math.NaN()
	}

	_, err := Train(table, TrainerConfig{Trees: 10, Seed: 42, MinRows: 15})
	var ide *models.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("Train error = %v, want InsufficientDataError after price-null removal", err)
	}
	if ide.Rows != 10 {
		t.Errorf("usable rows = %d, want 10", ide.Rows)
	}
}

func TestTrainDeterministic(t *testing.T) {
	table := syntheticTable(40)
	cfg := TrainerConfig{Trees: 25, Seed: 42, MinRows: 15}

	first, err := Train(table, cfg)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	second, err := Train(table, cfg)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	probe := buildVector(8, 128, models.Listing{Model: "Pixel 7a", Condition: 8, ConditionScore: 16, PTAApproved: true, CameraLensOK: true})
	if first.Predict(probe) != second.Predict(probe) {
		t.Errorf("identical seed and data produced different predictions: %v vs %v",
			first.Predict(probe), second.Predict(probe))
	}
}

func TestForestLearnsStorageGradient(t *testing.T) {
	table := syntheticTable(60)
	forest, err := Train(table, DefaultTrainerConfig())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	base := models.Listing{Model: "Pixel 7a", Condition: 8, ConditionScore: 16, PTAApproved: true, CameraLensOK: true}
	small := forest.Predict(buildVector(8, 32, base))
	large := forest.Predict(buildVector(8, 256, base))

	if large <= small {
		t.Errorf("expected higher prediction for larger storage, got %v <= %v", large, small)
	}
	// Predictions stay within the observed price band.
	if small < 20000+32*400-10000 || large > 20000+256*400+10000 {
		t.Errorf("predictions (%v, %v) far outside training band", small, large)
	}
}

func TestForestConstantTarget(t *testing.T) {
	table := syntheticTable(20)
	for i := range table.Prices {
		table.Prices[i] = 75000
	}

	forest, err := Train(table, TrainerConfig{Trees: 10, Seed: 7, MinRows: 15})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	got := forest.Predict(buildVector(8, 128, models.Listing{Model: "Pixel 7a"}))
	if math.Abs(got-75000) > 1e-6 {
		t.Errorf("Predict = %v, want 75000 for constant target", got)
	}
}
