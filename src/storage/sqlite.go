package storage

import (
	"database/sql"
	"fmt"

	"p2p-observer/src/logger"
	"p2p-observer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SessionStore keeps the spread and quote history of the current
// session. The default DSN is ":memory:", so the history lives and dies
// with the process; pointing db_path at a file keeps it across restarts.
type SessionStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSessionStore(cfg *models.MConfig, log *logger.Logger) (*SessionStore, error) {
	return &SessionStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SessionStore) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	// An in-memory database exists per connection; a second connection
	// would see an empty schema.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.recreateTables()
}

// -----------------------------------------------------------------------------

func (d *SessionStore) recreateTables() error {
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS spread_samples"); err != nil {
		return fmt.Errorf("failed to drop spread_samples: %w", err)
	}

	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE spread_samples (
			panel TEXT,
			exchange TEXT,
			percent REAL,
			ref_price REAL,
			p2p_avg REAL,
			created_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create spread_samples: %w", err)
	}

	if _, err := d.DB.Exec("DROP TABLE IF EXISTS quote_samples"); err != nil {
		return fmt.Errorf("failed to drop quote_samples: %w", err)
	}

	query = `
		CREATE TABLE quote_samples (
			exchange TEXT,
			asset TEXT,
			fiat TEXT,
			side TEXT,
			avg REAL,
			created_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create quote_samples: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SessionStore) SaveSpreadSample(s models.MSpreadSample) error {
	_, err := d.DB.Exec(`
		INSERT INTO spread_samples (panel, exchange, percent, ref_price, p2p_avg, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Panel, s.Exchange, s.Percent, s.RefPrice, s.P2PAvg, s.CreatedAt)
	return err
}

// -----------------------------------------------------------------------------

func (d *SessionStore) SaveQuoteSample(exchange string, params models.MQuoteParams, avg float64, createdAt int64) error {
	_, err := d.DB.Exec(`
		INSERT INTO quote_samples (exchange, asset, fiat, side, avg, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, exchange, params.Asset, params.Fiat, params.Side, avg, createdAt)
	return err
}

// -----------------------------------------------------------------------------

// RecentSpreads returns the newest spread samples, optionally narrowed
// to one panel and/or one exchange.
func (d *SessionStore) RecentSpreads(panel, exchange string, limit int) ([]models.MSpreadSample, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT panel, exchange, percent, ref_price, p2p_avg, created_at FROM spread_samples WHERE 1=1"
	args := make([]any, 0, 3)
	if panel != "" {
		query += " AND panel = ?"
		args = append(args, panel)
	}
	if exchange != "" {
		query += " AND exchange = ?"
		args = append(args, exchange)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.MSpreadSample
	for rows.Next() {
		var s models.MSpreadSample
		if err := rows.Scan(&s.Panel, &s.Exchange, &s.Percent, &s.RefPrice, &s.P2PAvg, &s.CreatedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SessionStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
