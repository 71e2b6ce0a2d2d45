package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

// cachedStrain is the msgpack shape of one strain in the snapshot blob.
// Prices are stored as strings so decimal values round-trip exactly.
type cachedStrain struct {
	ID            int64    `msgpack:"id"`
	Name          string   `msgpack:"name"`
	Slug          string   `msgpack:"slug"`
	Price         string   `msgpack:"price"`
	Change24h     *float64 `msgpack:"change_24h"`
	FavoriteCount int      `msgpack:"favorite_count"`
	PharmacyCount int      `msgpack:"pharmacy_count"`
}

// QuoteCache persists the last instrument snapshot as a single msgpack blob.
// A restart can then show stale-but-present prices while the first live
// fetch is in flight.
type QuoteCache struct {
	db  *DB
	log zerolog.Logger
}

// NewQuoteCache creates the cache and its table.
func NewQuoteCache(db *DB, log zerolog.Logger) (*QuoteCache, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS snapshot_cache (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			strains BLOB NOT NULL,
			saved_at INTEGER NOT NULL
		)`
	if _, err := db.Conn().Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create snapshot_cache table: %w", err)
	}

	return &QuoteCache{
		db:  db,
		log: log.With().Str("component", "quote_cache").Logger(),
	}, nil
}

// Save replaces the cached snapshot.
func (c *QuoteCache) Save(strains []domain.Strain) error {
	cached := make([]cachedStrain, 0, len(strains))
	for _, s := range strains {
		cached = append(cached, cachedStrain{
			ID:            s.ID,
			Name:          s.Name,
			Slug:          s.Slug,
			Price:         s.Price.String(),
			Change24h:     s.Change24h,
			FavoriteCount: s.FavoriteCount,
			PharmacyCount: s.PharmacyCount,
		})
	}

	blob, err := msgpack.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = c.db.Conn().Exec(`
		INSERT INTO snapshot_cache (id, strains, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET strains = excluded.strains, saved_at = excluded.saved_at`,
		blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}

	c.log.Debug().Int("strain_count", len(strains)).Msg("Snapshot cache saved")
	return nil
}

// Load returns the cached snapshot and when it was saved. An empty cache
// returns no strains and no error.
func (c *QuoteCache) Load() ([]domain.Strain, time.Time, error) {
	var blob []byte
	var savedAt int64
	err := c.db.Conn().QueryRow(`SELECT strains, saved_at FROM snapshot_cache WHERE id = 1`).
		Scan(&blob, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	var cached []cachedStrain
	if err := msgpack.Unmarshal(blob, &cached); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode snapshot cache: %w", err)
	}

	strains := make([]domain.Strain, 0, len(cached))
	for _, s := range cached {
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("cached strain %d has invalid price %q: %w", s.ID, s.Price, err)
		}
		strains = append(strains, domain.Strain{
			ID:            s.ID,
			Name:          s.Name,
			Slug:          s.Slug,
			Price:         price,
			Change24h:     s.Change24h,
			FavoriteCount: s.FavoriteCount,
			PharmacyCount: s.PharmacyCount,
		})
	}

	return strains, time.Unix(savedAt, 0), nil
}
