package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

func adminFixture() (*AdminService, *fakeUsers, *fakeConversations) {
	users := newFakeUsers(
		&model.User{ID: "admin1", Role: model.RoleAdmin},
		&model.User{ID: "teacher1", Role: model.RoleTeacher},
		&model.User{ID: "student1", Role: model.RoleStudent},
		// demoted still holds a token with an admin role claim.
		&model.User{ID: "demoted", Role: model.RoleStudent},
	)
	conversations := newFakeConversations()
	return NewAdminService(users, conversations, logger.NewNop()), users, conversations
}

func TestAdminRoleReverifiedAgainstStore(t *testing.T) {
	svc, _, _ := adminFixture()
	ctx := context.Background()

	// A route guard would have let "demoted" through on their stale
	// token claim; the service checks the store and refuses.
	_, err := svc.ListUsers(ctx, "demoted")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateUser(ctx, "demoted", &model.CreateUserRequest{
		Email: "x@y.z", Password: "password1", Name: "X", Role: model.RoleStudent,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.DeleteUser(ctx, "demoted", "student1")
	assert.ErrorIs(t, err, ErrForbidden)

	// An account deleted after token issuance is equally refused.
	_, err = svc.ListUsers(ctx, "ghost")
	assert.ErrorIs(t, err, ErrForbidden)

	// A real admin passes.
	listed, err := svc.ListUsers(ctx, "admin1")
	require.NoError(t, err)
	assert.Len(t, listed, 4)
}

func TestUpdateUserTeacherLink(t *testing.T) {
	svc, users, _ := adminFixture()
	ctx := context.Background()

	// Linking a student to themselves is rejected.
	self := "student1"
	_, err := svc.UpdateUser(ctx, "admin1", "student1", &model.UpdateUserRequest{TeacherID: &self})
	assert.ErrorIs(t, err, ErrSelfAssignment)

	// The link target must currently hold the teacher role.
	notTeacher := "demoted"
	_, err = svc.UpdateUser(ctx, "admin1", "student1", &model.UpdateUserRequest{TeacherID: &notTeacher})
	assert.ErrorIs(t, err, ErrNotATeacher)

	// A valid link sticks.
	teacher := "teacher1"
	updated, err := svc.UpdateUser(ctx, "admin1", "student1", &model.UpdateUserRequest{TeacherID: &teacher})
	require.NoError(t, err)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, "teacher1", *updated.TeacherID)

	// Clearing with an empty string unlinks.
	empty := ""
	updated, err = svc.UpdateUser(ctx, "admin1", "student1", &model.UpdateUserRequest{TeacherID: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.TeacherID)

	stored, err := users.GetByID(ctx, "student1")
	require.NoError(t, err)
	assert.Nil(t, stored.TeacherID)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	svc, _, _ := adminFixture()
	err := svc.DeleteUser(context.Background(), "admin1", "admin1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSoftDeleteHidesFromOwnerButNotAdmin(t *testing.T) {
	adminSvc, _, conversations := adminFixture()
	convSvc := NewConversationService(conversations, logger.NewNop())
	ctx := context.Background()

	conv, err := convSvc.Create(ctx, "student1", &model.CreateConversationRequest{Title: "Algebra"})
	require.NoError(t, err)

	// The owner deletes it; it vanishes from their view.
	require.NoError(t, convSvc.Delete(ctx, "student1", conv.ID))

	_, err = convSvc.Get(ctx, "student1", conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	listed, err := convSvc.List(ctx, "student1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, listed.Conversations)

	// The admin moderation view still sees it.
	all, err := adminSvc.ListAllConversations(ctx, "admin1", 10, 0)
	require.NoError(t, err)
	require.Len(t, all.Conversations, 1)
	assert.Equal(t, conv.ID, all.Conversations[0].ID)

	// Only the admin purge removes it for real.
	require.NoError(t, adminSvc.PurgeConversation(ctx, "admin1", conv.ID))
	all, err = adminSvc.ListAllConversations(ctx, "admin1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, all.Conversations)

	// Purging again is not-found.
	err = adminSvc.PurgeConversation(ctx, "admin1", conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _, _ := adminFixture()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "admin1", &model.CreateUserRequest{
		Email: "t@example.com", Password: "password1", Name: "T", Role: model.RoleTeacher,
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "admin1", &model.CreateUserRequest{
		Email: "t@example.com", Password: "password1", Name: "T2", Role: model.RoleStudent,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
