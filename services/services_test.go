package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"famportal/database"
	"famportal/models"
	"famportal/notify"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Dispatch(m notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Event)
	}
	return out
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	svc   *Services
	notes *recorder
	clock time.Time
	seq   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Connect("sqlite://:memory:", logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, logger, "", ""))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		notes: &recorder{},
		clock: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = New(Deps{
		DB:       db,
		Notifier: f.notes,
		Logger:   logger,
		Now:      func() time.Time { return f.clock },
		Location: time.UTC,
	})
	return f
}

func (f *fixture) user(role string) *models.User {
	f.t.Helper()
	f.seq++
	u := models.User{
		Name:     fmt.Sprintf("member-%d", f.seq),
		StaticID: fmt.Sprintf("%d-%04d", 100+f.seq, f.seq),
		Password: "not-a-hash",
		Role:     role,
		Status:   models.UserActive,
		Rank:     1,
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return &u
}

func (f *fixture) member() *models.User { return f.user(models.RoleMember) }

func (f *fixture) contract() *models.Contract {
	f.t.Helper()
	f.seq++
	c := models.Contract{Title: fmt.Sprintf("Harvest %d", f.seq), Level: 1, Reward: 500, IsActive: true}
	require.NoError(f.t, f.db.Create(&c).Error)
	return &c
}

func (f *fixture) take(userID uint) *models.UserContract {
	f.t.Helper()
	uc, err := f.svc.Contracts.Take(f.ctx, userID, f.contract().ID)
	require.NoError(f.t, err)
	return uc
}

func (f *fixture) submit(userID uint, others ...uint) *models.Report {
	f.t.Helper()
	uc := f.take(userID)
	r, err := f.svc.Reports.Submit(f.ctx, SubmitReportInput{
		UserID:         userID,
		UserContractID: uc.ID,
		ItemName:       "Wheat",
		Quantity:       40,
		Proof:          "https://cdn.example.org/proofs/wheat.png",
		ParticipantIDs: others,
	})
	require.NoError(f.t, err)
	return r
}

func (f *fixture) approve(userID uint, value float64, others ...uint) *models.Report {
	f.t.Helper()
	r := f.submit(userID, others...)
	mod := f.user(models.RoleModerator)
	out, err := f.svc.Reports.Approve(f.ctx, r.ID, value, mod.ID)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) settings(in SettingsInput) {
	f.t.Helper()
	admin := f.user(models.RoleAdmin)
	_, err := f.svc.Settings.Update(f.ctx, admin.ID, in)
	require.NoError(f.t, err)
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int { return &v }
func bptr(v bool) *bool { return &v }
