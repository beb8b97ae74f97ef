package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/intellifone/appraisal/internal/models"
)

func newTestStorage(t *testing.T, maxListings int) *Storage {
	t.Helper()
	s, err := New(maxListings, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close storage: %v", err)
		}
	})
	return s
}

func sampleListing(model string, price int) *models.Listing {
	return &models.Listing{
		Brand:          "Google",
		Model:          model,
		Ram:            "8GB",
		Storage:        "128GB",
		Condition:      8,
		ConditionScore: 17.5,
		PTAApproved:    true,
		CameraLensOK:   true,
		FingerprintOK:  true,
		Price:          &price,
		City:           "Lahore",
		ListingSource:  "olx",
		Images:         []string{"https://example.com/1.jpg"},
		PostDate:       time.Now().Add(-24 * time.Hour),
	}
}

func TestAddAndListByModel(t *testing.T) {
	s := newTestStorage(t, 100)

	if err := s.AddListing(sampleListing("Google Pixel 7a", 82000)); err != nil {
		t.Fatalf("AddListing failed: %v", err)
	}
	if err := s.AddListing(sampleListing("Google Pixel 8", 145000)); err != nil {
		t.Fatalf("AddListing failed: %v", err)
	}
	if err := s.AddListing(sampleListing("Samsung Galaxy S23", 165000)); err != nil {
		t.Fatalf("AddListing failed: %v", err)
	}

	listings, err := s.ListByModel(context.Background(), "pixel")
	if err != nil {
		t.Fatalf("ListByModel failed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}

	// Substring match is case-insensitive in both directions.
	listings, err = s.ListByModel(context.Background(), "GALAXY s23")
	if err != nil {
		t.Fatalf("ListByModel failed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}

	l := listings[0]
	if l.Model != "Samsung Galaxy S23" || l.Ram != "8GB" || !l.PTAApproved {
		t.Errorf("unexpected listing: %+v", l)
	}
	if l.Price == nil || *l.Price != 165000 {
		t.Errorf("price = %v, want 165000", l.Price)
	}
	if len(l.Images) != 1 {
		t.Errorf("images = %v, want one entry", l.Images)
	}
}

func TestListByModelNoMatch(t *testing.T) {
	s := newTestStorage(t, 100)

	if err := s.AddListing(sampleListing("Google Pixel 7a", 82000)); err != nil {
		t.Fatalf("AddListing failed: %v", err)
	}

	listings, err := s.ListByModel(context.Background(), "iPhone")
	if err != nil {
		t.Fatalf("ListByModel failed: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("got %d listings, want 0", len(listings))
	}
}

func TestAddListingInvalid(t *testing.T) {
	s := newTestStorage(t, 100)

	if err := s.AddListing(&models.Listing{Brand: "Google"}); err == nil {
		t.Error("expected error for listing without model")
	}
}

func TestAddListingMissingPrice(t *testing.T) {
	s := newTestStorage(t, 100)

	l := sampleListing("Google Pixel 7a", 0)
	l.Price = nil
	if err := s.AddListing(l); err != nil {
		t.Fatalf("AddListing failed: %v", err)
	}

	listings, err := s.ListByModel(context.Background(), "Pixel")
	if err != nil {
		t.Fatalf("ListByModel failed: %v", err)
	}
	if len(listings) != 1 || listings[0].Price != nil {
		t.Errorf("expected one listing with nil price, got %+v", listings)
	}
}

func TestListingCap(t *testing.T) {
	s := newTestStorage(t, 5)

	for i := 0; i < 8; i++ {
		if err := s.AddListing(sampleListing("Google Pixel 7a", 80000+i)); err != nil {
			t.Fatalf("AddListing failed: %v", err)
		}
	}

	n, err := s.CountListings()
	if err != nil {
		t.Fatalf("CountListings failed: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want cap of 5", n)
	}
}

func TestRotateListings(t *testing.T) {
	s := newTestStorage(t, 0) // no cap at insert time

	for i := 0; i < 6; i++ {
		if err := s.AddListing(sampleListing("Google Pixel 7a", 80000+i)); err != nil {
			t.Fatalf("AddListing failed: %v", err)
		}
	}

	s.maxListings = 3
	if err := s.RotateListings(); err != nil {
		t.Fatalf("RotateListings failed: %v", err)
	}

	n, err := s.CountListings()
	if err != nil {
		t.Fatalf("CountListings failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3 after rotation", n)
	}
}
