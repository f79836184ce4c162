package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS draw_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			draw_id    INTEGER,
			account    TEXT,
			asset      TEXT,
			amount     TEXT,
			quantity   INTEGER,
			note       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_draw ON draw_events(draw_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON draw_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS draw_results (
			draw_id    INTEGER PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			kind       TEXT,
			status     TEXT,
			asset      TEXT,
			prize_pool TEXT,
			sold       INTEGER,
			winners    TEXT,
			executor   TEXT,
			randomness TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvents(events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, e := range events {
		if _, err := tx.Exec(`INSERT INTO draw_events
			(timestamp, event_type, draw_id, account, asset, amount, quantity, note)
			VALUES (?,?,?,?,?,?,?,?)`,
			e.At.UnixMilli(), string(e.Type), int64(e.DrawID),
			e.Account.Hex(), e.Asset.Hex(), e.Amount.String(), int64(e.Quantity), e.Note,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.Type, err)
		}
	}
	return tx.Commit()
}

// ResultOf flattens a settled draw into its stored row.
func ResultOf(d *model.Draw) DrawResult {
	at := d.ExecutedAt
	if d.Status == model.StatusCancelled {
		at = d.CancelledAt
	}
	winners := make([]string, len(d.Winners))
	for i, w := range d.Winners {
		winners[i] = w.Hex()
	}
	return DrawResult{
		DrawID:     d.ID,
		Kind:       d.Kind.String(),
		Status:     d.Status.String(),
		Asset:      d.Asset.Hex(),
		PrizePool:  d.PrizePool().String(),
		Sold:       d.TicketsSold,
		Winners:    winners,
		Executor:   d.Executor.Hex(),
		Randomness: d.Randomness.Hex(),
		SettledAt:  at.Unix(),
	}
}

func (r *SQLiteRecorder) RecordDrawResult(d *model.Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := ResultOf(d)
	_, err := r.db.Exec(`INSERT OR REPLACE INTO draw_results
		(draw_id, timestamp, kind, status, asset, prize_pool, sold, winners, executor, randomness)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		int64(res.DrawID), res.SettledAt, res.Kind, res.Status, res.Asset, res.PrizePool,
		int64(res.Sold), strings.Join(res.Winners, ","), res.Executor, res.Randomness,
	)
	return err
}

// Result reads back a stored draw result.
func (r *SQLiteRecorder) Result(drawID uint64) (*DrawResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res DrawResult
	var id, sold int64
	var winners string
	err := r.db.QueryRow(`SELECT draw_id, timestamp, kind, status, asset, prize_pool, sold, winners, executor, randomness
		FROM draw_results WHERE draw_id = ?`, int64(drawID)).
		Scan(&id, &res.SettledAt, &res.Kind, &res.Status, &res.Asset, &res.PrizePool, &sold, &winners, &res.Executor, &res.Randomness)
	if err != nil {
		return nil, err
	}
	res.DrawID, res.Sold = uint64(id), uint64(sold)
	if winners != "" {
		res.Winners = strings.Split(winners, ",")
	}
	return &res, nil
}

func (r *SQLiteRecorder) Events(drawID uint64) ([]model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, event_type, draw_id, account, asset, amount, quantity, note
		FROM draw_events WHERE draw_id = ? ORDER BY id`, int64(drawID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			ts, id, qty           int64
			typ, acct, asset, amt string
			note                  string
		)
		if err := rows.Scan(&ts, &typ, &id, &acct, &asset, &amt, &qty, &note); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amt)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amt, err)
		}
		out = append(out, model.Event{
			Type:     model.EventType(typ),
			DrawID:   uint64(id),
			Account:  common.HexToAddress(acct),
			Asset:    common.HexToAddress(asset),
			Amount:   amount,
			Quantity: uint64(qty),
			Note:     note,
			At:       time.UnixMilli(ts).UTC(),
		})
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
