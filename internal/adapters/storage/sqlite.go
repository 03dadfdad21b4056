package storage

// sqlite.go — persistencia del estado del bot.
//
// Tablas:
//   settings     — key-value de configuración persistida
//   traders      — wallets monitoreadas (address, label, source, active)
//   positions    — ledger de posiciones abiertas, una fila por market id
//   activity_log — log de eventos append-only
//
// Single-writer: solo el runner escribe; los reads de status pueden ser
// concurrentes. Cada upsert/delete es atómico a nivel SQLite.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS traders (
    address  TEXT PRIMARY KEY,
    label    TEXT NOT NULL DEFAULT '',
    source   TEXT NOT NULL DEFAULT 'manual',
    active   INTEGER NOT NULL DEFAULT 1,
    added_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    market_id    TEXT PRIMARY KEY,
    token_id     TEXT NOT NULL DEFAULT '',
    condition_id TEXT NOT NULL DEFAULT '',
    outcome      TEXT NOT NULL DEFAULT '',
    size_usd     REAL NOT NULL DEFAULT 0,
    entry_price  REAL NOT NULL DEFAULT 0,
    trader       TEXT NOT NULL DEFAULT '',
    mode         TEXT NOT NULL DEFAULT 'paper',
    opened_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp  DATETIME NOT NULL,
    event_type TEXT NOT NULL,
    market_id  TEXT NOT NULL DEFAULT '',
    trader     TEXT NOT NULL DEFAULT '',
    outcome    TEXT NOT NULL DEFAULT '',
    size_usd   REAL NOT NULL DEFAULT 0,
    price      REAL NOT NULL DEFAULT 0,
    mode       TEXT NOT NULL DEFAULT 'paper',
    details    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_activity_ts   ON activity_log(id DESC);
CREATE INDEX IF NOT EXISTS idx_traders_active ON traders(active);
CREATE INDEX IF NOT EXISTS idx_positions_at  ON positions(opened_at DESC);
`

// SQLiteLedger implementa ports.Ledger usando SQLite (pure Go, sin CGo).
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// --- Posiciones ---

// UpsertPosition inserta o actualiza la posición del market id dado.
// El condition_id solo se sobreescribe si el nuevo valor no está vacío.
func (s *SQLiteLedger) UpsertPosition(ctx context.Context, p domain.OpenPosition) error {
	openedAt := p.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (market_id, token_id, condition_id, outcome,
		                       size_usd, entry_price, trader, mode, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET
			size_usd     = excluded.size_usd,
			entry_price  = excluded.entry_price,
			condition_id = CASE WHEN excluded.condition_id != ''
			               THEN excluded.condition_id ELSE positions.condition_id END
	`, p.MarketID, p.TokenID, p.ConditionID, p.Outcome,
		p.SizeUSD, p.EntryPrice, p.Trader, string(p.Mode), openedAt)
	if err != nil {
		return fmt.Errorf("storage.UpsertPosition %s: %w", p.MarketID, err)
	}
	return nil
}

// RemovePosition elimina la posición del market id dado (no-op si no existe).
func (s *SQLiteLedger) RemovePosition(ctx context.Context, marketID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE market_id = ?`, marketID); err != nil {
		return fmt.Errorf("storage.RemovePosition %s: %w", marketID, err)
	}
	return nil
}

// GetPositions devuelve todas las posiciones abiertas, más recientes primero.
func (s *SQLiteLedger) GetPositions(ctx context.Context) ([]domain.OpenPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, token_id, condition_id, outcome,
		       size_usd, entry_price, trader, mode, opened_at
		FROM positions ORDER BY opened_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetPositions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.OpenPosition
	for rows.Next() {
		var p domain.OpenPosition
		var mode string
		if err := rows.Scan(&p.MarketID, &p.TokenID, &p.ConditionID, &p.Outcome,
			&p.SizeUSD, &p.EntryPrice, &p.Trader, &mode, &p.OpenedAt); err != nil {
			return nil, fmt.Errorf("storage.GetPositions: scan: %w", err)
		}
		p.Mode = domain.TradeMode(mode)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Traders ---

// GetTraders devuelve los traders registrados, más recientes primero.
func (s *SQLiteLedger) GetTraders(ctx context.Context, activeOnly bool) ([]domain.TraderRecord, error) {
	query := `SELECT address, label, source, active, added_at FROM traders`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY added_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTraders: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TraderRecord
	for rows.Next() {
		var t domain.TraderRecord
		var active int
		if err := rows.Scan(&t.Address, &t.Label, &t.Source, &active, &t.AddedAt); err != nil {
			return nil, fmt.Errorf("storage.GetTraders: scan: %w", err)
		}
		t.Active = active == 1
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTrader inserta o actualiza un trader. El flag active se preserva en
// updates — desactivar un trader es decisión del operador, no del refresh.
func (s *SQLiteLedger) AddTrader(ctx context.Context, t domain.TraderRecord) error {
	addedAt := t.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	active := 0
	if t.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO traders (address, label, source, active, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			label  = excluded.label,
			source = excluded.source
	`, t.Address, t.Label, t.Source, active, addedAt)
	if err != nil {
		return fmt.Errorf("storage.AddTrader %s: %w", t.Address, err)
	}
	return nil
}

// RemoveTrader elimina un trader por address.
func (s *SQLiteLedger) RemoveTrader(ctx context.Context, address string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM traders WHERE address = ?`, address); err != nil {
		return fmt.Errorf("storage.RemoveTrader %s: %w", address, err)
	}
	return nil
}

// --- Settings ---

// GetSetting devuelve el valor de la key, o fallback si no existe.
func (s *SQLiteLedger) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("storage.GetSetting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting guarda un valor (upsert).
func (s *SQLiteLedger) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("storage.SetSetting %s: %w", key, err)
	}
	return nil
}

// AllSettings devuelve todas las settings persistidas.
func (s *SQLiteLedger) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("storage.AllSettings: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("storage.AllSettings: scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// --- Activity log ---

// LogActivity agrega un evento al log append-only.
func (s *SQLiteLedger) LogActivity(ctx context.Context, e domain.ActivityEvent) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	mode := e.Mode
	if mode == "" {
		mode = domain.ModePaper
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (timestamp, event_type, market_id, trader,
		                          outcome, size_usd, price, mode, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts, e.Type, e.MarketID, e.Trader, e.Outcome, e.SizeUSD, e.Price, string(mode), e.Details)
	if err != nil {
		return fmt.Errorf("storage.LogActivity %s: %w", e.Type, err)
	}
	return nil
}

// GetActivity devuelve los últimos limit eventos, más recientes primero.
func (s *SQLiteLedger) GetActivity(ctx context.Context, limit int) ([]domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, market_id, trader, outcome,
		       size_usd, price, mode, details
		FROM activity_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetActivity: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityEvent
	for rows.Next() {
		var e domain.ActivityEvent
		var mode string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.MarketID, &e.Trader,
			&e.Outcome, &e.SizeUSD, &e.Price, &mode, &e.Details); err != nil {
			return nil, fmt.Errorf("storage.GetActivity: scan: %w", err)
		}
		e.Mode = domain.TradeMode(mode)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
