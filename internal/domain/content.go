package domain

import (
	"context"
	"encoding/json"
	"time"
)

const (
	ContentAnnouncement = "ANNOUNCEMENT"
	ContentNews         = "NEWS"
	ContentEvent        = "EVENT"
)

func ValidContentType(t string) bool {
	switch t {
	case ContentAnnouncement, ContentNews, ContentEvent:
		return true
	}
	return false
}

type Content struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Type          string     `gorm:"size:16;not null;index" json:"type"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Body          string     `gorm:"type:text;not null" json:"content"`
	Slug          string     `gorm:"uniqueIndex;size:120;not null" json:"slug"`
	FeaturedImage *string    `gorm:"size:512" json:"featuredImage,omitempty"`
	IsPublished   bool       `gorm:"not null;index" json:"isPublished"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	Priority      int        `gorm:"not null" json:"priority"`
	AuthorID      string     `gorm:"size:36;not null;index" json:"authorId"`
	Author        *User      `gorm:"foreignKey:AuthorID" json:"-"`
	Event         *Event     `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (c Content) MarshalJSON() ([]byte, error) {
	type alias Content
	return json.Marshal(struct {
		alias
		Author *UserRef `json:"author,omitempty"`
	}{alias(c), c.Author.Ref()})
}

// CanManage 作者本人或编辑/管理员
func (c *Content) CanManage(u *User) bool {
	if u == nil {
		return false
	}
	return c.AuthorID == u.ID || u.IsStaff()
}

type ContentFilter struct {
	Type        string
	IsPublished *bool
	Search      string
}

type EventFilter struct {
	DateFrom            *time.Time
	DateTo              *time.Time
	Location            string
	RegistrationEnabled *bool
	Search              string
}

type ContentRepository interface {
	// Create 写入内容行；c.Event 非空时在同一事务中写入活动行
	Create(ctx context.Context, c *Content) error
	FindByID(ctx context.Context, id string) (*Content, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, f ContentFilter, p Page) ([]Content, int64, error)
	ListEvents(ctx context.Context, f EventFilter, p Page) ([]Content, int64, error)
	Published(ctx context.Context, contentType string, limit int, now time.Time) ([]Content, error)
	UpcomingEvents(ctx context.Context, limit int, now time.Time) ([]Content, error)
	Update(ctx context.Context, c *Content) error
	Delete(ctx context.Context, id string) error
}
