package domain

import (
	"context"
	"time"
)

const (
	RoleVisitor = "VISITOR"
	RoleMember  = "MEMBER"
	RoleEditor  = "EDITOR"
	RoleAdmin   = "ADMIN"
)

type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Email         string     `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash  *string    `gorm:"size:191" json:"-"`
	Name          string     `gorm:"size:100;not null" json:"name"`
	Phone         *string    `gorm:"size:32" json:"phone,omitempty"`
	Role          string     `gorm:"size:16;not null;index" json:"role"`
	IsActive      bool       `gorm:"not null" json:"isActive"`
	EmailVerified bool       `gorm:"not null" json:"emailVerified"`
	ProfileImage  *string    `gorm:"size:512" json:"profileImage,omitempty"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsStaff 编辑和管理员可以管理任意内容
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == RoleEditor || u.Role == RoleAdmin)
}

// UserRef 是嵌入到内容/报名/媒体响应里的精简用户
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f UserFilter, p Page) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}
