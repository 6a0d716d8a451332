package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ons-backend/internal/domain"
)

type MediaRepo struct{ db *gorm.DB }

func NewMediaRepo(db *gorm.DB) *MediaRepo { return &MediaRepo{db: db} }

func (r *MediaRepo) Create(ctx context.Context, m *domain.Media) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

func (r *MediaRepo) FindByID(ctx context.Context, id string) (*domain.Media, error) {
	var m domain.Media
	err := r.db.WithContext(ctx).Preload("Uploader").First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &m, err
}

// List 按上传时间倒序；Search 匹配原始文件名或元数据文本，Tags 任一子串命中即可
func (r *MediaRepo) List(ctx context.Context, mq domain.MediaQuery, p domain.Page) ([]domain.Media, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&domain.Media{})
		if mq.EventID != "" {
			q = q.Where("event_id = ?", mq.EventID)
		}
		if mq.Type != "" {
			q = q.Where("type = ?", mq.Type)
		}
		if s := strings.TrimSpace(mq.Search); s != "" {
			like := likePattern(s)
			q = q.Where(ilike("original_name")+" OR "+ilike("metadata"), like, like)
		}
		if len(mq.Tags) > 0 {
			var (
				conds []string
				args  []any
			)
			for _, t := range mq.Tags {
				if strings.TrimSpace(t) == "" {
					continue
				}
				conds = append(conds, ilike("metadata"))
				args = append(args, likePattern(t))
			}
			if len(conds) > 0 {
				q = q.Where(strings.Join(conds, " OR "), args...)
			}
		}
		return q
	}

	var (
		items []domain.Media
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(r.db.WithContext(gctx)).Count(&total).Error
	})
	g.Go(func() error {
		return scope(r.db.WithContext(gctx)).
			Preload("Uploader").
			Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).
			Find(&items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MediaRepo) UpdateMetadata(ctx context.Context, id string, md domain.MediaMetadata) error {
	res := r.db.WithContext(ctx).Model(&domain.Media{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"metadata": md, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MediaRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Media{}).Error
}

func (r *MediaRepo) Stats(ctx context.Context, f domain.MediaStatsFilter) ([]domain.MediaTypeStat, error) {
	q := r.db.WithContext(ctx).Model(&domain.Media{})
	if f.UploadedBy != "" {
		q = q.Where("uploaded_by = ?", f.UploadedBy)
	}
	if f.EventID != "" {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var out []domain.MediaTypeStat
	err := q.Select("type, COUNT(*) AS count, COALESCE(SUM(size), 0) AS total_size").
		Group("type").Order("type").
		Scan(&out).Error
	return out, err
}
