package repo

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ons-backend/internal/core/database"
	"ons-backend/internal/domain"
)

type RegistrationRepo struct{ db *gorm.DB }

func NewRegistrationRepo(db *gorm.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// Register 名额用条件更新占位，(event,email) 由唯一索引兜底
func (r *RegistrationRepo) Register(ctx context.Context, reg *domain.EventRegistration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if reg.Status == domain.RegistrationConfirmed {
			if err := takeSeat(tx, reg.EventID); err != nil {
				return err
			}
		}
		var n int64
		if err := tx.Model(&domain.EventRegistration{}).
			Where("event_id = ? AND email = ?", reg.EventID, reg.Email).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrAlreadyRegistered
		}
		if err := tx.Omit(clause.Associations).Create(reg).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return domain.ErrAlreadyRegistered
			}
			return err
		}
		return nil
	})
}

func takeSeat(tx *gorm.DB, eventID string) error {
	res := tx.Model(&domain.Event{}).
		Where("content_id = ? AND (max_participants IS NULL OR confirmed_count < max_participants)", eventID).
		UpdateColumn("confirmed_count", gorm.Expr("confirmed_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEventFull
	}
	return nil
}

func releaseSeat(tx *gorm.DB, eventID string) error {
	return tx.Model(&domain.Event{}).
		Where("content_id = ? AND confirmed_count > 0", eventID).
		UpdateColumn("confirmed_count", gorm.Expr("confirmed_count - 1")).Error
}

func (r *RegistrationRepo) FindByID(ctx context.Context, id string) (*domain.EventRegistration, error) {
	var reg domain.EventRegistration
	err := r.db.WithContext(ctx).Preload("User").First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &reg, err
}

func (r *RegistrationRepo) List(ctx context.Context, eventID string, p domain.Page) ([]domain.EventRegistration, int64, error) {
	var (
		items []domain.EventRegistration
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithContext(gctx).Model(&domain.EventRegistration{}).
			Where("event_id = ?", eventID).Count(&total).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Preload("User").
			Where("event_id = ?", eventID).
			Order("registered_at DESC").Offset(p.Offset()).Limit(p.Limit).
			Find(&items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateStatus 状态进出 CONFIRMED 时同步活动的已确认人数
func (r *RegistrationRepo) UpdateStatus(ctx context.Context, reg *domain.EventRegistration, status string) error {
	if reg.Status == status {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch {
		case status == domain.RegistrationConfirmed:
			if err := takeSeat(tx, reg.EventID); err != nil {
				return err
			}
		case reg.Status == domain.RegistrationConfirmed:
			if err := releaseSeat(tx, reg.EventID); err != nil {
				return err
			}
		}
		return tx.Model(&domain.EventRegistration{}).
			Where("id = ?", reg.ID).
			UpdateColumn("status", status).Error
	})
	if err != nil {
		return err
	}
	reg.Status = status
	return nil
}
