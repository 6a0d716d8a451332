package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

type ContentService struct {
	repo domain.ContentRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewContentService(repo domain.ContentRepository, log *zap.Logger) *ContentService {
	return &ContentService{repo: repo, log: log.Named("content"), now: time.Now}
}

type ContentInput struct {
	Type          string
	Title         string
	Content       string
	FeaturedImage *string
	IsPublished   bool
	PublishedAt   *time.Time
	ScheduledAt   *time.Time
	Priority      int
}

// ContentPatch 为 nil 的字段不修改
type ContentPatch struct {
	Title         *string
	Content       *string
	FeaturedImage *string
	IsPublished   *bool
	PublishedAt   *time.Time
	ScheduledAt   *time.Time
	Priority      *int
}

func (s *ContentService) List(ctx context.Context, f domain.ContentFilter, p domain.Page) (*Paged[domain.Content], error) {
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return newPaged(items, total, p), nil
}

func (s *ContentService) Get(ctx context.Context, id string) (*domain.Content, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find content: %w", err)
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *ContentService) Published(ctx context.Context, contentType string, limit int) ([]domain.Content, error) {
	if limit <= 0 || limit > domain.MaxPageSize {
		limit = domain.DefaultPageSize
	}
	items, err := s.repo.Published(ctx, contentType, limit, s.now())
	if err != nil {
		return nil, fmt.Errorf("published content: %w", err)
	}
	if items == nil {
		items = []domain.Content{}
	}
	return items, nil
}

func (s *ContentService) Create(ctx context.Context, author *domain.User, in ContentInput) (*domain.Content, error) {
	if !domain.ValidContentType(in.Type) {
		return nil, domain.Invalid("invalid content type")
	}
	slug, err := uniqueSlug(ctx, s.repo, in.Title, "")
	if err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == 0 {
		priority = 1
	}
	c := &domain.Content{
		ID:            utils.NewID(),
		Type:          in.Type,
		Title:         strings.TrimSpace(in.Title),
		Body:          utils.SanitizeHTML(in.Content),
		Slug:          slug,
		FeaturedImage: in.FeaturedImage,
		IsPublished:   in.IsPublished,
		PublishedAt:   in.PublishedAt,
		ScheduledAt:   in.ScheduledAt,
		Priority:      priority,
		AuthorID:      author.ID,
	}
	stampPublished(c, s.now())
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	c.Author = author
	s.log.Info("content created", zap.String("id", c.ID), zap.String("slug", c.Slug))
	return c, nil
}

func (s *ContentService) Update(ctx context.Context, actor *domain.User, id string, in ContentPatch) (*domain.Content, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanManage(actor) {
		return nil, domain.ErrForbidden
	}
	if err := applyContentPatch(ctx, s.repo, c, in, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContentService) Delete(ctx context.Context, actor *domain.User, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.CanManage(actor) {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("content deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

type slugChecker interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// uniqueSlug base, base-1, base-2 ... 取第一个空闲的；并发下由唯一索引兜底
func uniqueSlug(ctx context.Context, repo slugChecker, title, excludeID string) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = "item"
	}
	slug := base
	for i := 1; ; i++ {
		taken, err := repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// stampPublished 发布且没有发布时间时补当前时间，已有时间不覆盖
func stampPublished(c *domain.Content, now time.Time) {
	if c.IsPublished && c.PublishedAt == nil {
		c.PublishedAt = &now
	}
}

func applyContentPatch(ctx context.Context, repo slugChecker, c *domain.Content, in ContentPatch, now time.Time) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title != c.Title {
			slug, err := uniqueSlug(ctx, repo, title, c.ID)
			if err != nil {
				return err
			}
			c.Slug = slug
		}
		c.Title = title
	}
	if in.Content != nil {
		c.Body = utils.SanitizeHTML(*in.Content)
	}
	if in.FeaturedImage != nil {
		c.FeaturedImage = in.FeaturedImage
	}
	if in.PublishedAt != nil {
		c.PublishedAt = in.PublishedAt
	}
	if in.ScheduledAt != nil {
		c.ScheduledAt = in.ScheduledAt
	}
	if in.Priority != nil {
		c.Priority = *in.Priority
	}
	if in.IsPublished != nil {
		c.IsPublished = *in.IsPublished
		stampPublished(c, now)
	}
	return nil
}
