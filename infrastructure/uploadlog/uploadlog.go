// Package uploadlog keeps a local record of finished uploads so the admin
// screens can show what ran even after a workspace is closed.
package uploadlog

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadqueue"
	"github.com/Taikiy49/FS-Geolabs/models"
)

// Record stores one terminal queue item. Non-terminal items are ignored.
func Record(ctx context.Context, db *sqlite.DB, actor, channel string, item uploadqueue.Item) error {
	if !item.Status.Terminal() {
		return nil
	}
	msg := item.Message
	if item.Status == uploadqueue.StatusError {
		msg = item.Err
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&models.UploadRun{
			Actor:     actor,
			Channel:   channel,
			Target:    item.Target,
			FileName:  item.Name,
			SizeBytes: item.Size,
			Pages:     item.Pages,
			Status:    string(item.Status),
			Message:   msg,
		}).Exec(ctx)
		return err
	})
}

// Recorder returns a workspace upload hook that logs failures to record
// instead of returning them.
func Recorder(db *sqlite.DB, actor string) func(channel string, item uploadqueue.Item) {
	return func(channel string, item uploadqueue.Item) {
		if err := Record(context.Background(), db, actor, channel, item); err != nil {
			slog.Error("record upload run failed",
				slog.String("actor", actor),
				slog.String("channel", channel),
				slog.String("file", item.Name),
				slog.Any("err", err))
		}
	}
}

// Recent returns the newest runs for channel first. An empty channel
// returns every channel.
func Recent(ctx context.Context, db *sqlite.DB, channel string, limit int) ([]models.UploadRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.UploadRun
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&runs).OrderExpr("ur.id DESC").Limit(limit)
		if channel != "" {
			q = q.Where("ur.channel = ?", channel)
		}
		return q.Scan(ctx)
	})
	return runs, err
}
