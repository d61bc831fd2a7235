package sqlite

import (
	"context"
	"fmt"
	"time"

	"crypto-alert-bot/internal/model"
)

// SaveCandles upserts a batch of candles for a pair in one transaction.
// Used to cache REST downloads for offline backtests.
func (s *Store) SaveCandles(symbol, timeframe string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(symbol, timeframe, c.OpenTime.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Candles returns the most recent cached candles for a pair, oldest first.
// Implements the engine's candle source so backtests replay from disk.
func (s *Store) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT open_time, open, high, low, close, volume
		FROM (
			SELECT open_time, open, high, low, close, volume
			FROM candles
			WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC
			LIMIT ?
		)
		ORDER BY open_time ASC
	`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var c model.Candle
		var openTime int64
		if err := rows.Scan(&openTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.OpenTime = time.Unix(0, openTime*int64(time.Millisecond)).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// CandleCount returns how many candles are cached for a pair.
func (s *Store) CandleCount(symbol, timeframe string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM candles WHERE symbol = ? AND timeframe = ?`,
		symbol, timeframe,
	).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func unixUTC(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
