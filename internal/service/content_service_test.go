package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ons-backend/internal/domain"
	"ons-backend/internal/repo"
)

func newContentService(t *testing.T) (*ContentService, *domain.User) {
	t.Helper()
	db := newTestDB(t)
	author := seedUser(t, db, "editor@example.com", domain.RoleEditor)
	return NewContentService(repo.NewContentRepo(db), nop), author
}

func TestCreateAssignsUniqueSlugs(t *testing.T) {
	s, author := newContentService(t)

	want := []string{"summer-party", "summer-party-1", "summer-party-2"}
	for _, slug := range want {
		c, err := s.Create(ctx, author, ContentInput{Type: domain.ContentNews, Title: "Summer Party!", Content: "x"})
		require.NoError(t, err)
		assert.Equal(t, slug, c.Slug)
		assert.Equal(t, 1, c.Priority)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	s, author := newContentService(t)
	_, err := s.Create(ctx, author, ContentInput{Type: "BLOG", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateSanitizesBody(t *testing.T) {
	s, author := newContentService(t)
	c, err := s.Create(ctx, author, ContentInput{
		Type: domain.ContentAnnouncement, Title: "Notice",
		Content: `<p>Hello</p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	assert.Contains(t, c.Body, "<p>Hello</p>")
	assert.NotContains(t, c.Body, "script")
}

func TestPublishedAtStampedOnce(t *testing.T) {
	s, author := newContentService(t)
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return first }

	c, err := s.Create(ctx, author, ContentInput{Type: domain.ContentNews, Title: "Draft"})
	require.NoError(t, err)
	assert.Nil(t, c.PublishedAt)

	yes, no := true, false
	c, err = s.Update(ctx, author, c.ID, ContentPatch{IsPublished: &yes})
	require.NoError(t, err)
	require.NotNil(t, c.PublishedAt)
	assert.True(t, c.PublishedAt.Equal(first))

	s.now = func() time.Time { return first.Add(48 * time.Hour) }
	_, err = s.Update(ctx, author, c.ID, ContentPatch{IsPublished: &no})
	require.NoError(t, err)
	c, err = s.Update(ctx, author, c.ID, ContentPatch{IsPublished: &yes})
	require.NoError(t, err)
	assert.True(t, c.PublishedAt.Equal(first))
}

func TestUpdateTitleReslugs(t *testing.T) {
	s, author := newContentService(t)
	_, err := s.Create(ctx, author, ContentInput{Type: domain.ContentNews, Title: "Taken"})
	require.NoError(t, err)
	c, err := s.Create(ctx, author, ContentInput{Type: domain.ContentNews, Title: "Other"})
	require.NoError(t, err)

	same := "Other"
	c, err = s.Update(ctx, author, c.ID, ContentPatch{Title: &same})
	require.NoError(t, err)
	assert.Equal(t, "other", c.Slug)

	title := "Taken"
	c, err = s.Update(ctx, author, c.ID, ContentPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "taken-1", c.Slug)
}

func TestManageRequiresAuthorOrStaff(t *testing.T) {
	db := newTestDB(t)
	s := NewContentService(repo.NewContentRepo(db), nop)
	author := seedUser(t, db, "author@example.com", domain.RoleMember)
	other := seedUser(t, db, "other@example.com", domain.RoleMember)
	admin := seedUser(t, db, "admin@example.com", domain.RoleAdmin)

	c, err := s.Create(ctx, author, ContentInput{Type: domain.ContentNews, Title: "Mine"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = s.Update(ctx, other, c.ID, ContentPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, s.Delete(ctx, other, c.ID), domain.ErrForbidden)

	_, err = s.Update(ctx, author, c.ID, ContentPatch{Title: &title})
	assert.NoError(t, err)
	require.NoError(t, s.Delete(ctx, admin, c.ID))

	_, err = s.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	s, author := newContentService(t)
	for i := 0; i < 7; i++ {
		_, err := s.Create(ctx, author, ContentInput{Type: domain.ContentNews, Title: "Item"})
		require.NoError(t, err)
	}

	page, err := s.List(ctx, domain.ContentFilter{}, domain.Page{Page: 3, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total)
	assert.Len(t, page.Items, 1)

	page, err = s.List(ctx, domain.ContentFilter{Type: domain.ContentAnnouncement}, domain.Page{Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)
}
