package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

type fakeAnnouncements struct {
	mu    sync.Mutex
	items map[string]*model.Announcement
	reads map[string]map[string]bool // announcementID -> studentID
}

func newFakeAnnouncements() *fakeAnnouncements {
	return &fakeAnnouncements{
		items: make(map[string]*model.Announcement),
		reads: make(map[string]map[string]bool),
	}
}

func (f *fakeAnnouncements) Create(_ context.Context, a *model.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAnnouncements) Get(_ context.Context, id string) (*model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAnnouncements) Update(_ context.Context, a *model.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[a.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAnnouncements) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.items, id)
	delete(f.reads, id)
	return nil
}

func (f *fakeAnnouncements) ListActive(_ context.Context, studentID string, now time.Time) ([]model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Announcement
	for id, a := range f.items {
		if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			continue
		}
		cp := *a
		cp.Read = f.reads[id][studentID]
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeAnnouncements) ListByAuthor(_ context.Context, authorID string) ([]model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Announcement
	for _, a := range f.items {
		if a.AuthorID == authorID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAnnouncements) MarkRead(_ context.Context, read *model.AnnouncementRead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reads[read.AnnouncementID] == nil {
		f.reads[read.AnnouncementID] = make(map[string]bool)
	}
	f.reads[read.AnnouncementID][read.StudentID] = true
	return nil
}

func TestAnnouncementExpiryAndReadFlags(t *testing.T) {
	fake := newFakeAnnouncements()
	svc := NewAnnouncementService(fake, logger.NewNop())
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired, err := svc.Create(ctx, "t1", &model.CreateAnnouncementRequest{Title: "old", ExpiresAt: &past})
	require.NoError(t, err)
	current, err := svc.Create(ctx, "t1", &model.CreateAnnouncementRequest{Title: "current", ExpiresAt: &future})
	require.NoError(t, err)
	forever, err := svc.Create(ctx, "t1", &model.CreateAnnouncementRequest{Title: "pinned forever", Pinned: true})
	require.NoError(t, err)

	// Students see only unexpired ones, pinned first.
	active, err := svc.ListActive(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, forever.ID, active[0].ID)
	assert.Equal(t, current.ID, active[1].ID)
	assert.False(t, active[0].Read)

	// The author still sees all three.
	mine, err := svc.ListByAuthor(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	_ = expired

	// Read receipts are per student.
	require.NoError(t, svc.MarkRead(ctx, "s1", current.ID))
	require.NoError(t, svc.MarkRead(ctx, "s1", current.ID), "double mark is a no-op")

	active, err = svc.ListActive(ctx, "s1")
	require.NoError(t, err)
	for _, a := range active {
		assert.Equal(t, a.ID == current.ID, a.Read)
	}

	other, err := svc.ListActive(ctx, "s2")
	require.NoError(t, err)
	for _, a := range other {
		assert.False(t, a.Read, "another student's receipts don't leak")
	}
}

func TestAnnouncementAuthorship(t *testing.T) {
	fake := newFakeAnnouncements()
	svc := NewAnnouncementService(fake, logger.NewNop())
	ctx := context.Background()

	a, err := svc.Create(ctx, "t1", &model.CreateAnnouncementRequest{Title: "hello"})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityNormal, a.Priority, "priority defaults to normal")

	// A different teacher cannot edit or delete it.
	_, err = svc.Update(ctx, "t2", model.RoleTeacher, a.ID, &model.UpdateAnnouncementRequest{Title: "hijacked"})
	assert.ErrorIs(t, err, ErrForbidden)
	err = svc.Delete(ctx, "t2", model.RoleTeacher, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// An admin can.
	updated, err := svc.Update(ctx, "admin1", model.RoleAdmin, a.ID, &model.UpdateAnnouncementRequest{Title: "moderated"})
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Title)
	require.NoError(t, svc.Delete(ctx, "admin1", model.RoleAdmin, a.ID))

	err = svc.MarkRead(ctx, "s1", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
