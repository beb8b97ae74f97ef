// Package storage provides SQLite-backed persistence for comparable
// marketplace listings.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/intellifone/appraisal/internal/logger"
	"github.com/intellifone/appraisal/internal/models"
)

// Storage wraps a SQLite database holding ingested listings. It implements
// pricing.ListingSource.
type Storage struct {
	db          *sql.DB
	maxListings int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/appraisal/data.db.
func New(maxListings int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "appraisal", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxListings: maxListings}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id               TEXT PRIMARY KEY,
			brand            TEXT,
			model            TEXT NOT NULL,
			ram              TEXT,
			storage          TEXT,
			condition        INTEGER NOT NULL DEFAULT 0,
			condition_score  REAL NOT NULL DEFAULT 0,
			pta_approved     INTEGER NOT NULL DEFAULT 0,
			is_panel_changed INTEGER NOT NULL DEFAULT 0,
			screen_crack     INTEGER NOT NULL DEFAULT 0,
			panel_dot        INTEGER NOT NULL DEFAULT 0,
			panel_line       INTEGER NOT NULL DEFAULT 0,
			panel_shade      INTEGER NOT NULL DEFAULT 0,
			camera_lens_ok   INTEGER NOT NULL DEFAULT 0,
			fingerprint_ok   INTEGER NOT NULL DEFAULT 0,
			with_box         INTEGER NOT NULL DEFAULT 0,
			with_charger     INTEGER NOT NULL DEFAULT 0,
			price            INTEGER,
			city             TEXT,
			listing_source   TEXT,
			images           TEXT NOT NULL DEFAULT '[]',
			post_date        INTEGER NOT NULL DEFAULT 0,
			created_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_model ON listings(model COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const listingCols = `brand, model, ram, storage, condition, condition_score,
	pta_approved, is_panel_changed, screen_crack, panel_dot, panel_line, panel_shade,
	camera_lens_ok, fingerprint_ok, with_box, with_charger,
	price, city, listing_source, images, post_date`

// AddListing stores one ingested listing and enforces the retention cap.
// The original data source expired stale rows by TTL; here the oldest rows
// beyond maxListings are evicted instead.
func (s *Storage) AddListing(l *models.Listing) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid listing: %w", err)
	}
	imagesJSON, err := json.Marshal(l.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var price any
	if l.Price != nil {
		price = *l.Price
	}
	var postDate int64
	if !l.PostDate.IsZero() {
		postDate = l.PostDate.UnixNano()
	}

	_, err = tx.Exec(`
		INSERT INTO listings (id, `+listingCols+`, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.New().String(),
		l.Brand, l.Model, l.Ram, l.Storage, l.Condition, l.ConditionScore,
		boolToInt(l.PTAApproved), boolToInt(l.IsPanelChanged), boolToInt(l.ScreenCrack),
		boolToInt(l.PanelDot), boolToInt(l.PanelLine), boolToInt(l.PanelShade),
		boolToInt(l.CameraLensOK), boolToInt(l.FingerprintOK),
		boolToInt(l.WithBox), boolToInt(l.WithCharger),
		price, l.City, l.ListingSource, string(imagesJSON), postDate,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}

	if s.maxListings > 0 {
		if _, err = tx.Exec(`
			DELETE FROM listings WHERE id NOT IN (
				SELECT id FROM listings ORDER BY created_at DESC LIMIT ?
			)`, s.maxListings); err != nil {
			return fmt.Errorf("failed to enforce listing cap: %w", err)
		}
	}

	return tx.Commit()
}

// ListByModel returns listings whose model name contains the given string,
// case-insensitively. Rows that fail to scan are logged and skipped rather
// than aborting the batch.
func (s *Storage) ListByModel(ctx context.Context, model string) ([]models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+listingCols+` FROM listings
		WHERE model LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY created_at DESC`, model)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			logger.Warn("Skipping unreadable listing row: %v", err)
			continue
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// CountListings returns the number of stored listings.
func (s *Storage) CountListings() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

// RotateListings keeps at most maxListings newest rows by created_at.
func (s *Storage) RotateListings() error {
	if s.maxListings <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM listings WHERE id NOT IN (
			SELECT id FROM listings ORDER BY created_at DESC LIMIT ?
		)`, s.maxListings)
	if err != nil {
		return fmt.Errorf("failed to rotate listings: %w", err)
	}
	return nil
}

func scanListing(scan func(...any) error) (*models.Listing, error) {
	var l models.Listing
	var price sql.NullInt64
	var brand, ram, storage, city, source sql.NullString
	var ptaApproved, panelChanged, screenCrack, panelDot, panelLine, panelShade int
	var cameraOK, fingerprintOK, withBox, withCharger int
	var imagesJSON string
	var postDateNano int64

	err := scan(
		&brand, &l.Model, &ram, &storage, &l.Condition, &l.ConditionScore,
		&ptaApproved, &panelChanged, &screenCrack, &panelDot, &panelLine, &panelShade,
		&cameraOK, &fingerprintOK, &withBox, &withCharger,
		&price, &city, &source, &imagesJSON, &postDateNano,
	)
	if err != nil {
		return nil, err
	}

	l.Brand = brand.String
	l.Ram = ram.String
	l.Storage = storage.String
	l.City = city.String
	l.ListingSource = source.String
	l.PTAApproved = ptaApproved != 0
	l.IsPanelChanged = panelChanged != 0
	l.ScreenCrack = screenCrack != 0
	l.PanelDot = panelDot != 0
	l.PanelLine = panelLine != 0
	l.PanelShade = panelShade != 0
	l.CameraLensOK = cameraOK != 0
	l.FingerprintOK = fingerprintOK != 0
	l.WithBox = withBox != 0
	l.WithCharger = withCharger != 0

	if price.Valid {
		p := int(price.Int64)
		l.Price = &p
	}
	if err := json.Unmarshal([]byte(imagesJSON), &l.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	if postDateNano != 0 {
		l.PostDate = time.Unix(0, postDateNano)
	}
	return &l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
