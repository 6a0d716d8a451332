package domain

import (
	"context"
	"encoding/json"
	"time"
)

const (
	RegistrationPending   = "PENDING"
	RegistrationConfirmed = "CONFIRMED"
	RegistrationCancelled = "CANCELLED"
)

func ValidRegistrationStatus(s string) bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled:
		return true
	}
	return false
}

// Event 是 Content 的一对一扩展，主键即内容 ID
type Event struct {
	ContentID            string     `gorm:"primaryKey;size:36" json:"contentId"`
	Date                 time.Time  `gorm:"not null;index" json:"date"`
	Time                 string     `gorm:"size:5;not null" json:"time"`
	Location             string     `gorm:"size:200;not null" json:"location"`
	MaxParticipants      *int       `json:"maxParticipants,omitempty"`
	ConfirmedCount       int        `gorm:"not null" json:"confirmedCount"`
	RegistrationDeadline *time.Time `json:"registrationDeadline,omitempty"`
	RegistrationEnabled  bool       `gorm:"not null" json:"registrationEnabled"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// SpotsLeft 不限人数时返回 nil
func (e *Event) SpotsLeft() *int {
	if e.MaxParticipants == nil {
		return nil
	}
	left := *e.MaxParticipants - e.ConfirmedCount
	if left < 0 {
		left = 0
	}
	return &left
}

type EventRegistration struct {
	ID                  string    `gorm:"primaryKey;size:36" json:"id"`
	EventID             string    `gorm:"size:36;not null;uniqueIndex:idx_registration_event_email" json:"eventId"`
	UserID              *string   `gorm:"size:36;index" json:"userId,omitempty"`
	User                *User     `gorm:"foreignKey:UserID" json:"-"`
	Name                string    `gorm:"size:100;not null" json:"name"`
	Email               string    `gorm:"size:191;not null;uniqueIndex:idx_registration_event_email" json:"email"`
	Phone               *string   `gorm:"size:32" json:"phone,omitempty"`
	DietaryRestrictions *string   `gorm:"size:500" json:"dietaryRestrictions,omitempty"`
	EmergencyContact    *string   `gorm:"size:200" json:"emergencyContact,omitempty"`
	Status              string    `gorm:"size:16;not null;index" json:"status"`
	RegisteredAt        time.Time `gorm:"not null;index" json:"registeredAt"`
}

func (r EventRegistration) MarshalJSON() ([]byte, error) {
	type alias EventRegistration
	return json.Marshal(struct {
		alias
		User *UserRef `json:"user,omitempty"`
	}{alias(r), r.User.Ref()})
}

type RegistrationRepository interface {
	// Register 在一个事务里完成名额占用、重复检查和插入
	Register(ctx context.Context, r *EventRegistration) error
	FindByID(ctx context.Context, id string) (*EventRegistration, error)
	List(ctx context.Context, eventID string, p Page) ([]EventRegistration, int64, error)
	UpdateStatus(ctx context.Context, r *EventRegistration, status string) error
}
