package repo

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

func newsItem(author *domain.User, title string, priority int, published bool) *domain.Content {
	c := &domain.Content{
		ID:          utils.NewID(),
		Type:        domain.ContentNews,
		Title:       title,
		Body:        "<p>body of " + title + "</p>",
		Slug:        utils.Slugify(title),
		IsPublished: published,
		Priority:    priority,
		AuthorID:    author.ID,
	}
	if published {
		at := time.Now().Add(-time.Hour)
		c.PublishedAt = &at
	}
	return c
}

func TestContentRepoPagination(t *testing.T) {
	db := newTestDB(t)
	r := NewContentRepo(db)
	author := seedUser(t, db, "editor@example.com", domain.RoleEditor)
	for i := 0; i < 12; i++ {
		require.NoError(t, r.Create(ctx, newsItem(author, fmt.Sprintf("Item %d", i), 1, true)))
	}

	p := domain.NewPage(2, 5, 10)
	items, total, err := r.List(ctx, domain.ContentFilter{}, p)
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.EqualValues(t, 12, total)
	assert.True(t, p.HasNext(total))
	assert.True(t, p.HasPrev())
	require.NotNil(t, items[0].Author)
	assert.Equal(t, author.ID, items[0].Author.ID)
}

func TestContentRepoListFilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	r := NewContentRepo(db)
	author := seedUser(t, db, "editor@example.com", domain.RoleEditor)
	require.NoError(t, r.Create(ctx, newsItem(author, "Low priority", 1, true)))
	require.NoError(t, r.Create(ctx, newsItem(author, "High priority", 9, true)))
	require.NoError(t, r.Create(ctx, newsItem(author, "Draft Picnic", 5, false)))

	items, total, err := r.List(ctx, domain.ContentFilter{}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, "High priority", items[0].Title)

	yes := true
	items, total, err = r.List(ctx, domain.ContentFilter{IsPublished: &yes}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	items, total, err = r.List(ctx, domain.ContentFilter{Search: "picnic"}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Draft Picnic", items[0].Title)

	_, total, err = r.List(ctx, domain.ContentFilter{Type: domain.ContentAnnouncement}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestContentRepoSlugUniqueness(t *testing.T) {
	db := newTestDB(t)
	r := NewContentRepo(db)
	author := seedUser(t, db, "editor@example.com", domain.RoleEditor)
	first := newsItem(author, "Same Title", 1, false)
	require.NoError(t, r.Create(ctx, first))

	exists, err := r.SlugExists(ctx, "same-title", "")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = r.SlugExists(ctx, "same-title", first.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = r.Create(ctx, newsItem(author, "Same Title", 1, false))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestContentRepoEventLifecycle(t *testing.T) {
	db := newTestDB(t)
	r := NewContentRepo(db)
	regs := NewRegistrationRepo(db)
	author := seedUser(t, db, "editor@example.com", domain.RoleEditor)

	day := time.Now().Add(48 * time.Hour)
	ev := seedEvent(t, db, author, "Spring Fair", day, intPtr(10))
	require.NoError(t, regs.Register(ctx, registration(ev.ID, "a@example.com")))
	assert.Equal(t, 1, confirmedCount(t, db, ev.ID))

	got, err := r.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Event)
	assert.Equal(t, "Community Hall", got.Event.Location)

	// 编辑活动不能覆盖报名计数
	got.Title = "Spring Fair 2"
	got.Event.Location = "Park"
	got.Event.ConfirmedCount = 0
	got.Event.MaxParticipants = nil
	require.NoError(t, r.Update(ctx, got))

	again, err := r.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring Fair 2", again.Title)
	assert.Equal(t, "Park", again.Event.Location)
	assert.Nil(t, again.Event.MaxParticipants)
	assert.Equal(t, 1, again.Event.ConfirmedCount)

	require.NoError(t, r.Delete(ctx, ev.ID))
	gone, err := r.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var n int64
	require.NoError(t, db.Model(&domain.EventRegistration{}).Where("event_id = ?", ev.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&domain.Event{}).Where("content_id = ?", ev.ID).Count(&n).Error)
	assert.Zero(t, n)

	assert.ErrorIs(t, r.Delete(ctx, ev.ID), domain.ErrNotFound)
}

func TestContentRepoListEvents(t *testing.T) {
	db := newTestDB(t)
	r := NewContentRepo(db)
	author := seedUser(t, db, "editor@example.com", domain.RoleEditor)
	now := time.Now()

	late := seedEvent(t, db, author, "Late Concert", now.Add(72*time.Hour), nil)
	early := seedEvent(t, db, author, "Early Market", now.Add(24*time.Hour), nil)
	past := seedEvent(t, db, author, "Past Quiz", now.Add(-24*time.Hour), nil)
	require.NoError(t, r.Create(ctx, newsItem(author, "Not an event", 1, true)))

	items, total, err := r.ListEvents(ctx, domain.EventFilter{}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, []string{past.ID, early.ID, late.ID}, []string{items[0].ID, items[1].ID, items[2].ID})
	require.NotNil(t, items[0].Event)

	from := now
	items, total, err = r.ListEvents(ctx, domain.EventFilter{DateFrom: &from}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, early.ID, items[0].ID)

	items, total, err = r.ListEvents(ctx, domain.EventFilter{Search: "concert"}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, late.ID, items[0].ID)

	_, total, err = r.ListEvents(ctx, domain.EventFilter{Location: "hall"}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	upcoming, err := r.UpcomingEvents(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, early.ID, upcoming[0].ID)
}

func TestContentRepoPublished(t *testing.T) {
	db := newTestDB(t)
	r := NewContentRepo(db)
	author := seedUser(t, db, "editor@example.com", domain.RoleEditor)
	require.NoError(t, r.Create(ctx, newsItem(author, "Draft", 5, false)))
	require.NoError(t, r.Create(ctx, newsItem(author, "News A", 1, true)))
	require.NoError(t, r.Create(ctx, newsItem(author, "News B", 7, true)))

	items, err := r.Published(ctx, domain.ContentNews, 10, time.Now())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "News B", items[0].Title)

	items, err = r.Published(ctx, "", 1, time.Now())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
