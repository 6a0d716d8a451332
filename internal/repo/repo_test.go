package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ons-backend/internal/core/database"
	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

var ctx = context.Background()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) *domain.User {
	t.Helper()
	u := &domain.User{ID: utils.NewID(), Email: email, Name: "User " + email, Role: role, IsActive: true}
	require.NoError(t, NewUserRepo(db).Create(ctx, u))
	return u
}

func seedEvent(t *testing.T, db *gorm.DB, author *domain.User, title string, date time.Time, max *int) *domain.Content {
	t.Helper()
	publishedAt := time.Now().Add(-time.Hour)
	c := &domain.Content{
		ID:          utils.NewID(),
		Type:        domain.ContentEvent,
		Title:       title,
		Body:        "<p>" + title + "</p>",
		Slug:        utils.Slugify(title) + "-" + utils.NewID()[:8],
		IsPublished: true,
		PublishedAt: &publishedAt,
		Priority:    1,
		AuthorID:    author.ID,
		Event: &domain.Event{
			Date:                date,
			Time:                "18:00",
			Location:            "Community Hall",
			MaxParticipants:     max,
			RegistrationEnabled: true,
		},
	}
	require.NoError(t, NewContentRepo(db).Create(ctx, c))
	return c
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func confirmedCount(t *testing.T, db *gorm.DB, eventID string) int {
	t.Helper()
	var e domain.Event
	require.NoError(t, db.First(&e, "content_id = ?", eventID).Error)
	return e.ConfirmedCount
}

func registration(eventID, email string) *domain.EventRegistration {
	return &domain.EventRegistration{
		ID:           utils.NewID(),
		EventID:      eventID,
		Name:         "Guest " + email,
		Email:        email,
		Status:       domain.RegistrationConfirmed,
		RegisteredAt: time.Now(),
	}
}

func emails(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("guest%d@example.com", i)
	}
	return out
}
