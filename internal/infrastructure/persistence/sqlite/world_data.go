package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

const worldResetKey = "world_reset_at"

func (s *Store) IncrementTradeCount(ctx context.Context, currencyID int, currency string) error {
	const stmt = `
INSERT INTO currency_trades (currency_id, currency_name, trade_count, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(currency_id) DO UPDATE SET
	currency_name=COALESCE(NULLIF(excluded.currency_name, ''), currency_trades.currency_name),
	trade_count=currency_trades.trade_count + 1,
	updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, currencyID, currency, time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: increment trade count: %w", err)
	}
	return nil
}

// ListTradeCounts is ordered by trade count, highest first.
func (s *Store) ListTradeCounts(ctx context.Context) ([]domain.CurrencyTradeCount, error) {
	const query = `
SELECT currency_id, currency_name, trade_count
FROM currency_trades
ORDER BY trade_count DESC, currency_id;
`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list trade counts: %w", err)
	}
	defer rows.Close()

	var out []domain.CurrencyTradeCount
	for rows.Next() {
		var (
			rec  domain.CurrencyTradeCount
			name sql.NullString
		)
		if err := rows.Scan(&rec.CurrencyID, &name, &rec.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scan trade count: %w", err)
		}
		rec.Currency = name.String
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list trade counts rows: %w", err)
	}
	return out, nil
}

// ResetWorldData drops every per-world counter and records when it happened.
func (s *Store) ResetWorldData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: reset world data: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM currency_trades`); err != nil {
		return fmt.Errorf("sqlite: reset world data: %w", err)
	}

	const stmt = `
INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value=excluded.value,
	updated_at=excluded.updated_at;
`
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, stmt, worldResetKey, now.Format(time.RFC3339), now); err != nil {
		return fmt.Errorf("sqlite: reset world data: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: reset world data: %w", err)
	}
	return nil
}

// LastWorldReset returns the zero time when the world was never reset.
func (s *Store) LastWorldReset(ctx context.Context) (time.Time, error) {
	raw, err := s.GetSetting(ctx, worldResetKey)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse world reset time: %w", err)
	}
	return t, nil
}

var _ domain.WorldDataRepository = (*Store)(nil)
