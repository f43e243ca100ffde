package services

import (
	"context"
	"testing"
	"time"

	"famportal/apperr"
	"famportal/models"
	"famportal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Members.Register(f.ctx, RegisterInput{
		Name:            " Tommy Vercetti ",
		StaticID:        "77-1986",
		Password:        "vicecity",
		ApplicationNote: "invited by Lance",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tommy Vercetti", u.Name)
	assert.Equal(t, models.RoleMember, u.Role)
	assert.Equal(t, models.UserPending, u.Status)
	assert.NotEqual(t, "vicecity", u.Password)
	assert.Contains(t, f.notes.events(), notify.EventMemberApplied)

	_, err = f.svc.Members.Register(f.ctx, RegisterInput{Name: "Copy", StaticID: "77-1986", Password: "another1"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.svc.Members.Authenticate(f.ctx, "77-1986", "vicecity")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = f.svc.Members.Authenticate(f.ctx, "77-1986", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	require.NotNil(t, got)

	_, err = f.svc.Members.Authenticate(f.ctx, "nobody", "vicecity")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	for _, in := range []RegisterInput{
		{Name: "", StaticID: "1", Password: "secret1"},
		{Name: "A", StaticID: " ", Password: "secret1"},
		{Name: "A", StaticID: "1", Password: "short"},
	} {
		_, err := f.svc.Members.Register(f.ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestRegisterHonoursSettings(t *testing.T) {
	f := newFixture(t)
	f.settings(SettingsInput{AutoApprove: bptr(true)})

	u, err := f.svc.Members.Register(f.ctx, RegisterInput{Name: "Auto", StaticID: "auto-1", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, u.Status)

	f.settings(SettingsInput{ClosedRegister: bptr(true)})
	_, err = f.svc.Members.Register(f.ctx, RegisterInput{Name: "Late", StaticID: "late-1", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestReviewApplication(t *testing.T) {
	f := newFixture(t)
	mod := f.user(models.RoleModerator)
	u, err := f.svc.Members.Register(f.ctx, RegisterInput{Name: "Applicant", StaticID: "app-1", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.svc.Members.Review(f.ctx, mod.ID, u.ID, false, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	out, err := f.svc.Members.Review(f.ctx, mod.ID, u.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, out.Status)

	_, err = f.svc.Members.Review(f.ctx, mod.ID, u.ID, false, "too late")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	p, err := f.svc.Members.Principal(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, p.Status)
	assert.Equal(t, models.RoleMember, p.Role)

	_, err = f.svc.Members.Principal(f.ctx, 4242)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestBanAndUnban(t *testing.T) {
	f := newFixture(t)
	admin := f.user(models.RoleAdmin)
	mod := f.user(models.RoleModerator)
	otherMod := f.user(models.RoleModerator)
	u := f.member()

	_, err := f.svc.Members.SetBanned(f.ctx, principal(mod), mod.ID, true, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Members.SetBanned(f.ctx, principal(mod), otherMod.ID, true, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	out, err := f.svc.Members.SetBanned(f.ctx, principal(mod), u.ID, true, "griefing")
	require.NoError(t, err)
	assert.Equal(t, models.UserBanned, out.Status)

	_, err = f.svc.Members.SetBanned(f.ctx, principal(mod), u.ID, true, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	out, err = f.svc.Members.SetBanned(f.ctx, principal(admin), u.ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, out.Status)

	_, total, err := f.svc.Audit.List(f.ctx, AuditFilter{Action: AuditMemberBan})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestBannedMemberCannotLogIn(t *testing.T) {
	f := newFixture(t)
	admin := f.user(models.RoleAdmin)
	u, err := f.svc.Members.Register(f.ctx, RegisterInput{Name: "Trouble", StaticID: "bad-1", Password: "secret1"})
	require.NoError(t, err)
	_, err = f.svc.Members.SetBanned(f.ctx, principal(admin), u.ID, true, "cheating")
	require.NoError(t, err)

	_, err = f.svc.Members.Authenticate(f.ctx, "bad-1", "secret1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRoleAndRank(t *testing.T) {
	f := newFixture(t)
	admin := f.user(models.RoleAdmin)
	u := f.member()

	_, err := f.svc.Members.SetRole(f.ctx, admin.ID, admin.ID, models.RoleMember)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Members.SetRole(f.ctx, admin.ID, u.ID, "OWNER")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	out, err := f.svc.Members.SetRole(f.ctx, admin.ID, u.ID, "moderator")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, out.Role)

	_, err = f.svc.Members.SetRank(f.ctx, admin.ID, u.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	out, err = f.svc.Members.SetRank(f.ctx, admin.ID, u.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Rank)

	stored, err := f.svc.Members.Get(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, stored.Role)
	assert.Equal(t, 4, stored.Rank)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Members.Register(f.ctx, RegisterInput{Name: "Old", StaticID: "p-1", Password: "secret1"})
	require.NoError(t, err)

	name, avatar, bio := "New Name", "https://cdn.example.org/a.png", "farmer"
	out, err := f.svc.Members.UpdateProfile(f.ctx, u.ID, ProfileInput{Name: &name, Avatar: &avatar, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "New Name", out.Name)
	require.NotNil(t, out.Avatar)
	assert.Equal(t, avatar, *out.Avatar)

	bad := "javascript:alert(1)"
	_, err = f.svc.Members.UpdateProfile(f.ctx, u.ID, ProfileInput{Avatar: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	empty := " "
	_, err = f.svc.Members.UpdateProfile(f.ctx, u.ID, ProfileInput{Name: &empty})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.ErrorIs(t, f.svc.Members.ChangePassword(f.ctx, u.ID, "wrong", "secret2"), apperr.ErrValidation)
	require.NoError(t, f.svc.Members.ChangePassword(f.ctx, u.ID, "secret1", "secret2"))
	_, err = f.svc.Members.Authenticate(f.ctx, "p-1", "secret2")
	assert.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Members.EnsureAdmin(f.ctx, "boss-1", "Boss", "topsecret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, models.UserActive, u.Status)

	again, err := f.svc.Members.EnsureAdmin(f.ctx, "boss-1", "Boss Renamed", "topsecret2")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Boss Renamed", again.Name)
}

func TestTouchIsThrottled(t *testing.T) {
	f := newFixture(t)
	u := f.member()
	ctx := context.Background()

	f.svc.Members.Touch(ctx, u.ID)
	first, err := f.svc.Members.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, first.LastActiveAt)
	assert.True(t, first.LastActiveAt.Equal(f.clock))

	f.clock = f.clock.Add(30 * time.Second)
	f.svc.Members.Touch(ctx, u.ID)
	second, err := f.svc.Members.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, second.LastActiveAt.Equal(*first.LastActiveAt))

	f.clock = f.clock.Add(HeartbeatInterval)
	f.svc.Members.Touch(ctx, u.ID)
	third, err := f.svc.Members.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, third.LastActiveAt.Equal(f.clock))
}
