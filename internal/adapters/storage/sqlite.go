package storage

// sqlite.go — persistencia del pipeline en SQLite (pure Go, sin CGo).
//
// Tablas:
//   positions     — una fila por posición, UPSERT por id (peak_price incluido
//                   para que el trailing stop sobreviva reinicios)
//   trades        — registro inmutable de entradas y salidas
//   decisions     — cada decisión de edge, admitida o filtrada, para calibración
//   cooldowns     — claves estrategia::mercado::lado con su expiración
//   notifications — eventos operativos pendientes de entregar

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
    id            TEXT PRIMARY KEY,
    strategy      TEXT NOT NULL,
    market_id     TEXT NOT NULL,
    question      TEXT,
    side          TEXT NOT NULL,
    entry_price   REAL NOT NULL,
    shares        REAL NOT NULL,
    cost          REAL NOT NULL,
    target_price  REAL NOT NULL DEFAULT 0,
    stop_price    REAL NOT NULL DEFAULT 0,
    peak_price    REAL NOT NULL DEFAULT 0,
    confidence    REAL NOT NULL DEFAULT 0,
    trigger_news  TEXT NOT NULL DEFAULT '',
    opened_at     DATETIME NOT NULL,
    status        TEXT NOT NULL DEFAULT 'open',
    exit_price    REAL NOT NULL DEFAULT 0,
    exit_reason   TEXT NOT NULL DEFAULT '',
    closed_at     DATETIME,
    pnl           REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_positions_strategy ON positions(strategy, status);
CREATE INDEX IF NOT EXISTS idx_positions_market   ON positions(market_id);

CREATE TABLE IF NOT EXISTS trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    position_id TEXT NOT NULL,
    strategy    TEXT NOT NULL,
    market_id   TEXT NOT NULL,
    side        TEXT NOT NULL,
    action      TEXT NOT NULL,
    price       REAL NOT NULL,
    shares      REAL NOT NULL,
    pnl         REAL NOT NULL DEFAULT 0,
    reason      TEXT NOT NULL DEFAULT '',
    timestamp   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_strategy_ts ON trades(strategy, timestamp);

CREATE TABLE IF NOT EXISTS decisions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id     TEXT NOT NULL,
    question      TEXT,
    side          TEXT NOT NULL,
    entry_price   REAL NOT NULL,
    probability   REAL NOT NULL,
    confidence    REAL NOT NULL,
    edge          REAL NOT NULL,
    fee           REAL NOT NULL DEFAULT 0,
    reliability   TEXT NOT NULL DEFAULT '',
    admitted      INTEGER NOT NULL DEFAULT 0,
    filter_reason TEXT NOT NULL DEFAULT '',
    signal_count  INTEGER NOT NULL DEFAULT 0,
    timestamp     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(timestamp DESC);

CREATE TABLE IF NOT EXISTS cooldowns (
    key   TEXT PRIMARY KEY,
    until DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    action     TEXT NOT NULL,
    market_id  TEXT NOT NULL DEFAULT '',
    strategy   TEXT NOT NULL DEFAULT '',
    message    TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    consumed   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(consumed, id);
`

const (
	retentionDecisions = 14 * 24 * time.Hour
	retentionConsumed  = 7 * 24 * time.Hour
)

// SQLiteStorage implementa ports.Storage usando SQLite.
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
	s.pruneOld(context.Background())
	return s, nil
}

// UpsertPosition inserta o actualiza una posición por su id.
func (s *SQLiteStorage) UpsertPosition(ctx context.Context, p domain.Position) error {
	var closedAt *time.Time
	if !p.ClosedAt.IsZero() {
		t := p.ClosedAt.UTC()
		closedAt = &t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(id, strategy, market_id, question, side, entry_price, shares, cost,
			 target_price, stop_price, peak_price, confidence, trigger_news,
			 opened_at, status, exit_price, exit_reason, closed_at, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			peak_price  = excluded.peak_price,
			status      = excluded.status,
			exit_price  = excluded.exit_price,
			exit_reason = excluded.exit_reason,
			closed_at   = excluded.closed_at,
			pnl         = excluded.pnl
	`,
		p.ID, p.Strategy, p.MarketID, p.Question, string(p.Side),
		p.EntryPrice, p.Shares, p.Cost,
		p.Target, p.StopPrice, p.PeakPrice, p.Confidence, p.Trigger,
		p.OpenedAt.UTC(), string(p.Status),
		p.ExitPrice, string(p.ExitReason), closedAt, p.PnL,
	)
	if err != nil {
		return fmt.Errorf("storage.UpsertPosition %s: %w", p.ID, err)
	}
	return nil
}

// GetPositions devuelve las posiciones de una estrategia, filtradas por
// estado si status no está vacío.
func (s *SQLiteStorage) GetPositions(ctx context.Context, strategy string, status domain.PositionStatus) ([]domain.Position, error) {
	query := `
		SELECT id, strategy, market_id, question, side, entry_price, shares, cost,
		       target_price, stop_price, peak_price, confidence, trigger_news,
		       opened_at, status, exit_price, exit_reason, closed_at, pnl
		FROM positions
		WHERE strategy = ?`
	args := []any{strategy}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY opened_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.GetPositions: query: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var side, pstatus, exitReason string
		var question sql.NullString
		var closedAt sql.NullTime

		if err := rows.Scan(
			&p.ID, &p.Strategy, &p.MarketID, &question, &side,
			&p.EntryPrice, &p.Shares, &p.Cost,
			&p.Target, &p.StopPrice, &p.PeakPrice, &p.Confidence, &p.Trigger,
			&p.OpenedAt, &pstatus, &p.ExitPrice, &exitReason, &closedAt, &p.PnL,
		); err != nil {
			return nil, fmt.Errorf("storage.GetPositions: scan row: %w", err)
		}

		p.Question = question.String
		p.Side = domain.Side(side)
		p.Status = domain.PositionStatus(pstatus)
		p.ExitReason = domain.ExitReason(exitReason)
		if closedAt.Valid {
			p.ClosedAt = closedAt.Time
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// InsertTrade añade una entrada inmutable al registro de trades.
func (s *SQLiteStorage) InsertTrade(ctx context.Context, t domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (position_id, strategy, market_id, side, action,
		                    price, shares, pnl, reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.PositionID, t.Strategy, t.MarketID, string(t.Side), t.Action,
		t.Price, t.Shares, t.PnL, t.Reason, t.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.InsertTrade %s: %w", t.PositionID, err)
	}
	return nil
}

// RealizedPnLSince suma el PnL realizado de una estrategia desde el instante dado.
// Solo cuentan cierres: las filas OPEN llevan pnl cero de todas formas.
func (s *SQLiteStorage) RealizedPnLSince(ctx context.Context, strategy string, since time.Time) (float64, error) {
	var pnl sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(pnl) FROM trades
		WHERE strategy = ? AND timestamp >= ? AND action IN ('CLOSE', 'REDEEM')
	`, strategy, since.UTC()).Scan(&pnl)
	if err != nil {
		return 0, fmt.Errorf("storage.RealizedPnLSince: %w", err)
	}
	return pnl.Float64, nil
}

// SaveDecision registra una decisión de edge para calibración posterior.
func (s *SQLiteStorage) SaveDecision(ctx context.Context, d domain.EdgeDecision, at time.Time) error {
	admitted := 0
	if d.Admitted {
		admitted = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (market_id, question, side, entry_price, probability,
		                       confidence, edge, fee, reliability, admitted,
		                       filter_reason, signal_count, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.MarketID, d.Question, string(d.Side), d.EntryPrice, d.Probability,
		d.Confidence, d.Edge, d.Fee, string(d.Reliability), admitted,
		string(d.Reason), d.SignalCount, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveDecision %s: %w", d.MarketID, err)
	}
	return nil
}

// SetCooldown marca una clave como alertada hasta el instante dado.
func (s *SQLiteStorage) SetCooldown(ctx context.Context, key string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cooldowns (key, until) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET until = excluded.until
	`, key, until.UTC())
	if err != nil {
		return fmt.Errorf("storage.SetCooldown %s: %w", key, err)
	}
	return nil
}

// InCooldown devuelve si la clave sigue en ventana de cooldown.
func (s *SQLiteStorage) InCooldown(ctx context.Context, key string, now time.Time) (bool, error) {
	var until time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT until FROM cooldowns WHERE key = ?`, key,
	).Scan(&until)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage.InCooldown %s: %w", key, err)
	}
	return now.UTC().Before(until), nil
}

// AddNotification añade un evento al registro.
func (s *SQLiteStorage) AddNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (action, market_id, strategy, message, created_at, consumed)
		VALUES (?, ?, ?, ?, ?, 0)
	`, string(n.Action), n.MarketID, n.Strategy, n.Message, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("storage.AddNotification: %w", err)
	}
	return nil
}

// PendingNotifications devuelve las notificaciones no consumidas, en orden de llegada.
func (s *SQLiteStorage) PendingNotifications(ctx context.Context) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, market_id, strategy, message, created_at
		FROM notifications WHERE consumed = 0 ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.PendingNotifications: %w", err)
	}
	defer rows.Close()

	var pending []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var action string
		if err := rows.Scan(&n.ID, &action, &n.MarketID, &n.Strategy, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage.PendingNotifications: scan row: %w", err)
		}
		n.Action = domain.NotificationAction(action)
		pending = append(pending, n)
	}

	return pending, rows.Err()
}

// ConsumeNotifications marca las notificaciones dadas como entregadas.
func (s *SQLiteStorage) ConsumeNotifications(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET consumed = 1 WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("storage.ConsumeNotifications: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina decisiones viejas y notificaciones ya entregadas para
// mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	now := time.Now().UTC()
	s.db.ExecContext(ctx, `DELETE FROM decisions WHERE timestamp < ?`, now.Add(-retentionDecisions))
	s.db.ExecContext(ctx, `DELETE FROM notifications WHERE consumed = 1 AND created_at < ?`, now.Add(-retentionConsumed))
	s.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE until < ?`, now)
}
