package storage

// sqlite.go — histórico de scans.
//
// Estrategia:
//   - `scans`: resumen ligero por ciclo (símbolos, señales, mejor score). Siempre 1 fila.
//   - `scan_results`: una fila por señal puntuada que llegó al top del ciclo.
//     Las opciones descartadas por filtros o min_score no se persisten.
//   - Prune automático al arrancar: scans y resultados con más de 90 días.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const schema = `
-- Resumen ligero por ciclo de scan
CREATE TABLE IF NOT EXISTS scans (
    id          TEXT PRIMARY KEY,  -- UUID
    scanned_at  TEXT    NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    market_open INTEGER NOT NULL DEFAULT 0,
    symbols     INTEGER NOT NULL DEFAULT 0,
    signals     INTEGER NOT NULL DEFAULT 0,
    best_score  REAL    NOT NULL DEFAULT 0
);

-- Una fila por señal del top de cada scan
CREATE TABLE IF NOT EXISTS scan_results (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id          TEXT    NOT NULL REFERENCES scans(id),
    scanned_at       TEXT    NOT NULL,
    underlying       TEXT    NOT NULL,
    option_type      TEXT    NOT NULL,
    strike           REAL    NOT NULL,
    expiry           TEXT    NOT NULL,
    underlying_price REAL    NOT NULL DEFAULT 0,
    market_price     REAL    NOT NULL DEFAULT 0,
    model_price      REAL    NOT NULL DEFAULT 0,
    iv               REAL,
    hv               REAL,
    iv_hv_ratio      REAL,
    price_dev_pct    REAL    NOT NULL DEFAULT 0,
    is_overpriced    INTEGER NOT NULL DEFAULT 0,
    delta            REAL,
    theta            REAL,
    score            REAL    NOT NULL DEFAULT 0,
    signals          TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scans_at      ON scans(scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_at    ON scan_results(scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_score ON scan_results(score DESC);
CREATE INDEX IF NOT EXISTS idx_results_und   ON scan_results(underlying);
`

const (
	retention = 90 * 24 * time.Hour
	// timeLayout tiene ancho fijo: las comparaciones de texto en SQL respetan el orden temporal.
	timeLayout      = "2006-01-02T15:04:05.000000000Z"
	signalSeparator = "\n"
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.pruneOld(context.Background(), time.Now()); err != nil {
		slog.Warn("prune old scans failed", "path", path, "err", err)
	}
	return s, nil
}

// SaveScan persiste el resumen del scan y todas sus señales en una transacción.
func (s *SQLiteStorage) SaveScan(ctx context.Context, scan domain.Scan) error {
	if scan.ID == "" {
		return fmt.Errorf("storage.SaveScan: empty scan id: %w", domain.ErrInvalidInput)
	}
	signals := scan.Signals()
	at := formatTime(scan.StartedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveScan: begin tx: %w", err)
	}
	defer tx.Rollback()

	// 1. Resumen del scan — siempre una fila
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans (id, scanned_at, duration_ms, market_open, symbols, signals, best_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, at, scan.Duration.Milliseconds(), boolToInt(scan.MarketOpen),
		len(scan.Symbols), len(signals), scan.BestScore(),
	); err != nil {
		return fmt.Errorf("storage.SaveScan: insert scan: %w", err)
	}

	// 2. Señales
	if len(signals) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO scan_results
				(scan_id, scanned_at, underlying, option_type, strike, expiry,
				 underlying_price, market_price, model_price, iv, hv, iv_hv_ratio,
				 price_dev_pct, is_overpriced, delta, theta, score, signals)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("storage.SaveScan: prepare: %w", err)
		}
		defer stmt.Close()

		for _, sig := range signals {
			if _, err := stmt.ExecContext(ctx,
				scan.ID, at,
				sig.Symbol, sig.Side.String(), sig.Strike, sig.Expiry,
				sig.UnderlyingPrice, sig.MarketPrice, sig.ModelPrice,
				nullable(sig.IV), nullable(sig.HV), nullable(sig.IVHVRatio),
				sig.PriceDeviationPct, boolToInt(sig.IsOverpriced),
				nullable(sig.Delta), nullable(sig.Theta),
				sig.Score, strings.Join(sig.Signals, signalSeparator),
			); err != nil {
				return fmt.Errorf("storage.SaveScan: insert %s %s %.2f: %w", sig.Symbol, sig.Expiry, sig.Strike, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveScan: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve las señales cuyo scan está en el rango dado.
// Ordenadas por score desc — las mejores primero.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.ScanResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scan_id, scanned_at, underlying, option_type, strike, expiry,
		       underlying_price, market_price, model_price, iv, hv, iv_hv_ratio,
		       price_dev_pct, is_overpriced, delta, theta, score, signals
		FROM scan_results
		WHERE scanned_at BETWEEN ? AND ?
		ORDER BY score DESC, id ASC
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var results []domain.ScanResult
	for rows.Next() {
		var (
			r                           domain.ScanResult
			scannedAt, side, signals    string
			iv, hv, ratio, delta, theta sql.NullFloat64
			overpriced                  int
		)
		sig := &r.Signal
		if err := rows.Scan(
			&r.ScanID, &scannedAt, &sig.Symbol, &side, &sig.Strike, &sig.Expiry,
			&sig.UnderlyingPrice, &sig.MarketPrice, &sig.ModelPrice,
			&iv, &hv, &ratio,
			&sig.PriceDeviationPct, &overpriced, &delta, &theta,
			&sig.Score, &signals,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		if t, err := time.Parse(timeLayout, scannedAt); err != nil {
			slog.Warn("invalid scanned_at in stored result", "scan_id", r.ScanID, "value", scannedAt, "err", err)
		} else {
			r.ScannedAt = t
		}
		sig.Side = domain.OptionSide(side)
		sig.IV, sig.HV, sig.IVHVRatio = fromNull(iv), fromNull(hv), fromNull(ratio)
		sig.Delta, sig.Theta = fromNull(delta), fromNull(theta)
		sig.IsOverpriced = overpriced == 1
		if signals != "" {
			sig.Signals = strings.Split(signals, signalSeparator)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountScans devuelve el número de scans registrados.
func (s *SQLiteStorage) CountScans(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountScans: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina datos antiguos para mantener la DB ligera.
// Intenta ambas tablas aunque la primera falle.
func (s *SQLiteStorage) pruneOld(ctx context.Context, now time.Time) error {
	cutoff := formatTime(now.Add(-retention))
	var errs []error
	for _, table := range []string{"scan_results", "scans"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE scanned_at < ?`, cutoff); err != nil {
			errs = append(errs, fmt.Errorf("storage.pruneOld: %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
