package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"ons-backend/internal/core/database"
	"ons-backend/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if database.IsDuplicateKey(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter, p domain.Page) ([]domain.User, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&domain.User{})
		if f.Role != "" {
			q = q.Where("role = ?", f.Role)
		}
		if f.IsActive != nil {
			q = q.Where("is_active = ?", *f.IsActive)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := likePattern(s)
			q = q.Where(ilike("email")+" OR "+ilike("name"), like, like)
		}
		return q
	}

	var (
		users []domain.User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(r.db.WithContext(gctx)).Count(&total).Error
	})
	g.Go(func() error {
		return scope(r.db.WithContext(gctx)).
			Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).
			Find(&users).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *UserRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
