package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

func seedMedia(t *testing.T, r *MediaRepo, owner *domain.User, name, typ string, size int64, eventID *string, md domain.MediaMetadata) *domain.Media {
	t.Helper()
	m := &domain.Media{
		ID:           utils.NewID(),
		Filename:     name,
		OriginalName: name,
		StorageKey:   "media/" + name,
		URL:          "https://cdn.example.com/" + name,
		Type:         typ,
		Size:         size,
		MimeType:     "application/octet-stream",
		Metadata:     md,
		EventID:      eventID,
		UploadedBy:   owner.ID,
		IsPublic:     true,
	}
	require.NoError(t, r.Create(ctx, m))
	return m
}

func TestMediaRepoSearchAndTags(t *testing.T) {
	db := newTestDB(t)
	r := NewMediaRepo(db)
	owner := seedUser(t, db, "owner@example.com", domain.RoleMember)
	eventID := "event-1"

	seedMedia(t, r, owner, "beach.jpg", domain.MediaImage, 100, &eventID, domain.MediaMetadata{Tags: []string{"summer", "beach"}})
	seedMedia(t, r, owner, "Snow.PNG", domain.MediaImage, 200, nil, domain.MediaMetadata{Tags: []string{"winter"}, Description: "ski trip"})
	seedMedia(t, r, owner, "talk.mp4", domain.MediaVideo, 5000, &eventID, domain.MediaMetadata{})

	page := domain.NewPage(1, 10, 20)

	items, total, err := r.List(ctx, domain.MediaQuery{Search: "snow"}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Snow.PNG", items[0].OriginalName)

	_, total, err = r.List(ctx, domain.MediaQuery{Search: "ski"}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = r.List(ctx, domain.MediaQuery{Tags: []string{"summer", "winter"}}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = r.List(ctx, domain.MediaQuery{Tags: []string{"summer", "winter"}, EventID: eventID}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	items, total, err = r.List(ctx, domain.MediaQuery{EventID: eventID, Type: domain.MediaVideo}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.NotNil(t, items[0].Uploader)
	assert.Equal(t, owner.ID, items[0].Uploader.ID)
}

func TestMediaRepoMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t)
	r := NewMediaRepo(db)
	owner := seedUser(t, db, "owner@example.com", domain.RoleMember)
	m := seedMedia(t, r, owner, "a.jpg", domain.MediaImage, 10, nil, domain.MediaMetadata{Tags: []string{"x"}})

	md := m.Metadata.Merge(domain.MetadataPatch{AltText: strPtr("A cat"), Tags: []string{"cat"}})
	require.NoError(t, r.UpdateMetadata(ctx, m.ID, md))

	got, err := r.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, got.Metadata.Tags)
	assert.Equal(t, "A cat", got.Metadata.AltText)

	assert.ErrorIs(t, r.UpdateMetadata(ctx, "missing", md), domain.ErrNotFound)
}

func TestMediaRepoLegacyMetadata(t *testing.T) {
	db := newTestDB(t)
	r := NewMediaRepo(db)
	owner := seedUser(t, db, "owner@example.com", domain.RoleMember)
	m := seedMedia(t, r, owner, "old.jpg", domain.MediaImage, 10, nil, domain.MediaMetadata{})

	require.NoError(t, db.Exec("UPDATE media SET metadata = ? WHERE id = ?", `["old","legacy"]`, m.ID).Error)
	got, err := r.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "legacy"}, got.Metadata.Tags)

	require.NoError(t, db.Exec("UPDATE media SET metadata = ? WHERE id = ?", `{broken`, m.ID).Error)
	got, err = r.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Metadata.Tags)
}

func TestMediaRepoStatsAndDelete(t *testing.T) {
	db := newTestDB(t)
	r := NewMediaRepo(db)
	owner := seedUser(t, db, "owner@example.com", domain.RoleMember)
	other := seedUser(t, db, "other@example.com", domain.RoleMember)

	seedMedia(t, r, owner, "1.jpg", domain.MediaImage, 100, nil, domain.MediaMetadata{})
	seedMedia(t, r, owner, "2.jpg", domain.MediaImage, 50, nil, domain.MediaMetadata{})
	doc := seedMedia(t, r, owner, "3.pdf", domain.MediaDocument, 1000, nil, domain.MediaMetadata{})
	seedMedia(t, r, other, "4.jpg", domain.MediaImage, 7, nil, domain.MediaMetadata{})

	stats, err := r.Stats(ctx, domain.MediaStatsFilter{UploadedBy: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, []domain.MediaTypeStat{
		{Type: domain.MediaDocument, Count: 1, TotalSize: 1000},
		{Type: domain.MediaImage, Count: 2, TotalSize: 150},
	}, stats)

	require.NoError(t, r.Delete(ctx, doc.ID))
	got, err := r.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMediaRepoTagWithAmpersand(t *testing.T) {
	db := newTestDB(t)
	r := NewMediaRepo(db)
	owner := seedUser(t, db, "owner@example.com", domain.RoleMember)
	seedMedia(t, r, owner, "panel.jpg", domain.MediaImage, 10, nil, domain.MediaMetadata{Tags: []string{"Q&A", "<live>"}})
	seedMedia(t, r, owner, "other.jpg", domain.MediaImage, 10, nil, domain.MediaMetadata{Tags: []string{"qa"}})

	var raw string
	require.NoError(t, db.Raw("SELECT metadata FROM media WHERE original_name = ?", "panel.jpg").Scan(&raw).Error)
	assert.Contains(t, raw, "Q&A")
	assert.Contains(t, raw, "<live>")

	page := domain.NewPage(1, 10, 20)
	items, total, err := r.List(ctx, domain.MediaQuery{Tags: []string{"q&a"}}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "panel.jpg", items[0].OriginalName)

	items, total, err = r.List(ctx, domain.MediaQuery{Search: "Q&A"}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "panel.jpg", items[0].OriginalName)

	_, total, err = r.List(ctx, domain.MediaQuery{Search: "<live>"}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
