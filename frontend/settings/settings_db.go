package settings

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

// Preferences are the per-user defaults of the Ask AI toggles.
type Preferences struct {
	AskUseCache bool
	AskUseWeb   bool
}

// DefaultPreferences apply until a user saves their own.
var DefaultPreferences = Preferences{AskUseCache: true}

func LoadPreferences(ctx context.Context, db *sqlite.DB, email string) (Preferences, error) {
	prefs := DefaultPreferences
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.QueryRowContext(ctx,
			`SELECT ask_use_cache, ask_use_web FROM user_settings WHERE email = ?`,
			strings.ToLower(email)).Scan(&prefs.AskUseCache, &prefs.AskUseWeb)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences, nil
	}
	if err != nil {
		return DefaultPreferences, err
	}
	return prefs, nil
}

func SavePreferences(ctx context.Context, db *sqlite.DB, email string, prefs Preferences) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO user_settings (email, ask_use_cache, ask_use_web, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(email) DO UPDATE SET
  ask_use_cache = excluded.ask_use_cache,
  ask_use_web = excluded.ask_use_web,
  updated_at = CURRENT_TIMESTAMP`, strings.ToLower(email), prefs.AskUseCache, prefs.AskUseWeb)
		return err
	})
}
