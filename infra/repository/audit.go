package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amirasaad/securebank/pkg/domain/audit"
	"github.com/amirasaad/securebank/pkg/repository"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	details := ""
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = string(raw)
	}
	dbModel := AuditLog{
		UserID:    entry.UserID,
		Action:    entry.Action,
		Details:   details,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		CreatedAt: entry.CreatedAt,
	}
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(&dbModel).Error
	}); err != nil {
		return err
	}
	entry.ID = dbModel.ID
	return nil
}

func (r *auditRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*audit.Entry, error) {
	var rows []AuditLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*audit.Entry, 0, len(rows))
	for i := range rows {
		e := &audit.Entry{
			ID:        rows[i].ID,
			UserID:    rows[i].UserID,
			Action:    rows[i].Action,
			IPAddress: rows[i].IPAddress,
			UserAgent: rows[i].UserAgent,
			CreatedAt: rows[i].CreatedAt,
		}
		if rows[i].Details != "" {
			if err := json.Unmarshal([]byte(rows[i].Details), &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details %d: %w", rows[i].ID, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}
