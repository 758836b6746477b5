package audit

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/models"
)

// Audited actions.
const (
	ActionDeleteDatabase    = "database.delete"
	ActionDeleteObjects     = "s3.delete"
	ActionMoveObject        = "s3.move"
	ActionReindexObjects    = "s3.reindex"
	ActionUpdateRole        = "user.role"
	ActionRegisterUser      = "user.register"
	ActionDeleteUser        = "user.delete"
	ActionDeleteChatHistory = "chat.history.delete"
)

// Service writes audit records inside the caller transaction.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Write records one command by actor. before and after are stored as JSON.
func (s *Service) Write(ctx context.Context, tx bun.Tx, actor string, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := marshal(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return err
	}
	log := &models.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	_, err = tx.NewInsert().Model(log).Exec(ctx)
	return err
}

// Record writes one entry in its own write transaction.
func (s *Service) Record(ctx context.Context, db *sqlite.DB, actor, action, entityType, entityID string, before, after any) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return s.Write(ctx, tx, actor, action, entityType, entityID, before, after)
	})
}

// Recent returns the newest entries first.
func Recent(ctx context.Context, db *sqlite.DB, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.AuditLog
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&logs).OrderExpr("al.id DESC").Limit(limit).Scan(ctx)
	})
	return logs, err
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
