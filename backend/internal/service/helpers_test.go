package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/notify"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/internal/testutil"
)

// ── 测试辅助 ──

// recordingDeliverer 记录每次投递的通知
type recordingDeliverer struct {
	mu      sync.Mutex
	changes []notify.StatusChange
	err     error
}

func (d *recordingDeliverer) Deliver(_ context.Context, change notify.StatusChange) []notify.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.changes = append(d.changes, change)
	return []notify.Result{{Channel: model.ChannelLog, Recipient: change.Email, Err: d.err}}
}

func (d *recordingDeliverer) statuses() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.changes))
	for _, c := range d.changes {
		out = append(out, c.Status)
	}
	return out
}

type testEnv struct {
	repo     *repository.Repository
	requests RequestService
	slots    SlotService
	admins   AdminService
	notified *recordingDeliverer

	root      *model.Admin
	volunteer *model.Admin
	other     *model.Admin
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, _ := testutil.NewRepository(t)
	logger := zap.NewNop()
	rec := &recordingDeliverer{}
	trigger := NewNotificationTrigger(repo, rec, true, time.Second, logger)

	env := &testEnv{
		repo:     repo,
		requests: NewRequestService(repo, trigger, 5*time.Second, logger),
		slots:    NewSlotService(repo, 5*time.Second, 30, "UTC", logger),
		admins:   NewAdminService(repo, logger),
		notified: rec,
	}
	env.root = seedAdmin(t, repo, "root", model.RoleSystemAdmin)
	env.volunteer = seedAdmin(t, repo, "vera", model.RoleVolunteer)
	env.other = seedAdmin(t, repo, "otto", model.RoleVolunteer)
	return env
}

func (e *testEnv) rootP() policy.Principal {
	return policy.Principal{AdminID: e.root.ID, Role: model.RoleSystemAdmin}
}

func (e *testEnv) volP() policy.Principal {
	return policy.Principal{AdminID: e.volunteer.ID, Role: model.RoleVolunteer}
}

func (e *testEnv) otherP() policy.Principal {
	return policy.Principal{AdminID: e.other.ID, Role: model.RoleVolunteer}
}

func seedAdmin(t *testing.T, repo *repository.Repository, username, role string) *model.Admin {
	t.Helper()
	admin := &model.Admin{
		Username:     username,
		PasswordHash: "x",
		DisplayName:  username,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, repo.Admin.Create(context.Background(), admin))
	return admin
}

func seedRequest(t *testing.T, repo *repository.Repository, name string) *model.TechRequest {
	t.Helper()
	req := &model.TechRequest{
		FullName:           name,
		Phone:              "555-0100",
		Email:              "client@example.org",
		Address:            "1 Main St",
		ProblemDescription: "wifi keeps dropping",
		UrgencyLevel:       model.UrgencyMedium,
		Status:             model.StatusPending,
	}
	require.NoError(t, repo.Request.Create(context.Background(), req))
	return req
}

func seedSlot(t *testing.T, repo *repository.Repository, date, start, end string) *model.AvailableSlot {
	t.Helper()
	slot := &model.AvailableSlot{Date: date, StartTime: start, EndTime: end}
	require.NoError(t, repo.Slot.Create(context.Background(), slot))
	return slot
}

func loadRequest(t *testing.T, repo *repository.Repository, id int64) *model.TechRequest {
	t.Helper()
	req, err := repo.Request.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func loadSlot(t *testing.T, repo *repository.Repository, id int64) *model.AvailableSlot {
	t.Helper()
	slot, err := repo.Slot.GetByID(context.Background(), id)
	require.NoError(t, err)
	return slot
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
