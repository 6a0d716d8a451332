package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ons-backend/internal/core/database"
	"ons-backend/internal/domain"
)

type ContentRepo struct{ db *gorm.DB }

func NewContentRepo(db *gorm.DB) *ContentRepo { return &ContentRepo{db: db} }

func (r *ContentRepo) Create(ctx context.Context, c *domain.Content) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		if c.Event == nil {
			return nil
		}
		c.Event.ContentID = c.ID
		return tx.Create(c.Event).Error
	})
	return slugConflict(err)
}

func (r *ContentRepo) FindByID(ctx context.Context, id string) (*domain.Content, error) {
	var c domain.Content
	err := r.db.WithContext(ctx).
		Preload("Author").Preload("Event").
		First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *ContentRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&domain.Content{}).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *ContentRepo) List(ctx context.Context, f domain.ContentFilter, p domain.Page) ([]domain.Content, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&domain.Content{})
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if f.IsPublished != nil {
			q = q.Where("is_published = ?", *f.IsPublished)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := likePattern(s)
			q = q.Where(ilike("title")+" OR "+ilike("body"), like, like)
		}
		return q
	}
	return r.page(ctx, scope, "", "priority DESC, created_at DESC", p)
}

// ListEvents 只返回带活动行的 EVENT 内容，按活动日期升序
func (r *ContentRepo) ListEvents(ctx context.Context, f domain.EventFilter, p domain.Page) ([]domain.Content, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&domain.Content{}).
			Joins("JOIN events ON events.content_id = contents.id").
			Where("contents.type = ?", domain.ContentEvent)
		if f.DateFrom != nil {
			q = q.Where("events.date >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			q = q.Where("events.date <= ?", *f.DateTo)
		}
		if s := strings.TrimSpace(f.Location); s != "" {
			q = q.Where(ilike("events.location"), likePattern(s))
		}
		if f.RegistrationEnabled != nil {
			q = q.Where("events.registration_enabled = ?", *f.RegistrationEnabled)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := likePattern(s)
			q = q.Where(ilike("contents.title")+" OR "+ilike("contents.body"), like, like)
		}
		return q
	}
	return r.page(ctx, scope, "contents.*", "events.date ASC, contents.created_at DESC", p)
}

// page 并发执行计数和分页查询
func (r *ContentRepo) page(ctx context.Context, scope func(*gorm.DB) *gorm.DB, sel, order string, p domain.Page) ([]domain.Content, int64, error) {
	var (
		items []domain.Content
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(r.db.WithContext(gctx)).Count(&total).Error
	})
	g.Go(func() error {
		q := scope(r.db.WithContext(gctx))
		if sel != "" {
			q = q.Select(sel)
		}
		return q.Preload("Author").Preload("Event").
			Order(order).Offset(p.Offset()).Limit(p.Limit).
			Find(&items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ContentRepo) Published(ctx context.Context, contentType string, limit int, now time.Time) ([]domain.Content, error) {
	q := r.db.WithContext(ctx).
		Preload("Author").Preload("Event").
		Where("is_published = ? AND published_at <= ?", true, now)
	if contentType != "" {
		q = q.Where("type = ?", contentType)
	}
	var items []domain.Content
	err := q.Order("priority DESC, published_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *ContentRepo) UpcomingEvents(ctx context.Context, limit int, now time.Time) ([]domain.Content, error) {
	var items []domain.Content
	err := r.db.WithContext(ctx).
		Select("contents.*").
		Joins("JOIN events ON events.content_id = contents.id").
		Preload("Author").Preload("Event").
		Where("contents.type = ? AND contents.is_published = ? AND contents.published_at <= ?", domain.ContentEvent, true, now).
		Where("events.date >= ?", now).
		Order("events.date ASC").Limit(limit).
		Find(&items).Error
	return items, err
}

// Update 保存内容行；c.Event 非空时一并保存活动行，报名计数不在此处改动
func (r *ContentRepo) Update(ctx context.Context, c *domain.Content) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(c).Error; err != nil {
			return err
		}
		if c.Event == nil {
			return nil
		}
		c.Event.ContentID = c.ID
		return tx.Model(c.Event).
			Select("date", "time", "location", "max_participants", "registration_deadline", "registration_enabled", "updated_at").
			Updates(c.Event).Error
	})
	return slugConflict(err)
}

// Delete 依次删除报名、活动行和内容；媒体只解除活动关联
func (r *ContentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&domain.EventRegistration{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Media{}).Where("event_id = ?", id).Update("event_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", id).Delete(&domain.Event{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Content{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func slugConflict(err error) error {
	if database.IsDuplicateKey(err) {
		return fmt.Errorf("%w: slug already in use", domain.ErrConflict)
	}
	return err
}
