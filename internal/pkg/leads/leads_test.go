package leads

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/app/repository/repotest"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
)

type recordingDispatcher struct {
	sent []notify.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) error {
	d.sent = append(d.sent, msg)
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

type fixture struct {
	repos      *repository.Repositories
	svc        *Service
	dispatcher *recordingDispatcher
	clock      *fakeClock
	owner      access.Principal
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := repotest.NewStore()
	repos := store.Repositories()

	user := &models.User{Name: "Owner", Email: "owner@example.com", Role: models.RoleBusinessOwner}
	require.NoError(t, repos.User.Create(user))

	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	d := &recordingDispatcher{}
	engine := access.NewEngine(repos.Business)
	opts = append([]Option{WithClock(clock.now)}, opts...)

	return &fixture{
		repos:      repos,
		svc:        NewService(repos, engine, d, opts...),
		dispatcher: d,
		clock:      clock,
		owner:      access.Principal{UserID: user.ID, Role: models.RoleBusinessOwner, Authenticated: true},
	}
}

func (f *fixture) business(t *testing.T, plan models.PlanType, status models.BusinessStatus) *models.Business {
	t.Helper()
	b := &models.Business{Name: "Shop " + string(plan), Slug: "shop-" + string(plan) + "-" + string(status), OwnerID: f.owner.UserID, PlanType: plan, Status: status}
	require.NoError(t, f.repos.Business.Create(b))
	return b
}

func (f *fixture) submit(t *testing.T, businessID uint, message string) *SubmitResult {
	t.Helper()
	res, err := f.svc.Submit(context.Background(), SubmitInput{
		BusinessID: businessID, Name: "Customer", Email: "c@example.com", Message: message,
	})
	require.NoError(t, err)
	return res
}

func TestComputePriority(t *testing.T) {
	tests := []struct {
		plan    models.PlanType
		message string
		want    models.LeadPriority
	}{
		{models.PlanVIP, "please help urgently", models.LeadPriorityUrgent},
		{models.PlanBasic, "interested in your services", models.LeadPriorityMedium},
		{models.PlanVIP, "interested in your services", models.LeadPriorityHigh},
		{models.PlanPro, "a quote please", models.LeadPriorityMedium},
		{models.PlanFreeTrial, "Need this ASAP!", models.LeadPriorityUrgent},
		{models.PlanBasic, "EMERGENCY plumbing", models.LeadPriorityUrgent},
		{models.PlanFreeTrial, "", models.LeadPriorityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputePriority(tt.plan, tt.message), "%s %q", tt.plan, tt.message)
	}
}

func TestSubmit_CreatesNewLead(t *testing.T) {
	f := newFixture(t)
	b := f.business(t, models.PlanVIP, models.BusinessStatusActive)

	res := f.submit(t, b.ID, "please help urgently")
	assert.Equal(t, "4 hours", res.ExpectedResponseTime)
	assert.Equal(t, models.LeadPriorityUrgent, res.Lead.Priority)
	assert.Equal(t, models.LeadStatusNew, res.Lead.Status)
	assert.Equal(t, "website", res.Lead.Source)
	assert.Nil(t, res.Lead.ViewedAt)
	assert.Nil(t, res.Lead.RespondedAt)
	assert.Nil(t, res.Lead.ConvertedAt)

	basic := f.business(t, models.PlanBasic, models.BusinessStatusActive)
	res = f.submit(t, basic.ID, "interested in your services")
	assert.Equal(t, "24 hours", res.ExpectedResponseTime)
	assert.Equal(t, models.LeadPriorityMedium, res.Lead.Priority)
}

func TestSubmit_InactiveBusinessIsNotFound(t *testing.T) {
	f := newFixture(t)
	for _, status := range []models.BusinessStatus{models.BusinessStatusPending, models.BusinessStatusSuspended, models.BusinessStatusDraft} {
		b := f.business(t, models.PlanBasic, status)
		_, err := f.svc.Submit(context.Background(), SubmitInput{BusinessID: b.ID, Name: "Cu", Email: "c@example.com", Message: "hello"})
		assert.True(t, apperror.IsCode(err, apperror.CodeNotFound), "status %s", status)
	}

	_, err := f.svc.Submit(context.Background(), SubmitInput{BusinessID: 9999, Name: "Cu", Email: "c@example.com", Message: "hello"})
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	b := f.business(t, models.PlanBasic, models.BusinessStatusActive)

	_, err := f.svc.Submit(context.Background(), SubmitInput{BusinessID: b.ID, Name: "Cu", Email: "nope", Message: ""})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Len(t, appErr.Fields, 2)
}

func TestSubmit_NotifiesOwnerWhenEnabled(t *testing.T) {
	off := newFixture(t)
	b := off.business(t, models.PlanBasic, models.BusinessStatusActive)
	off.submit(t, b.ID, "hello there")
	assert.Empty(t, off.dispatcher.sent)

	on := newFixture(t, WithOwnerNotification(func() bool { return true }))
	b = on.business(t, models.PlanBasic, models.BusinessStatusActive)
	on.submit(t, b.ID, "hello there")
	require.Len(t, on.dispatcher.sent, 1)
	assert.Equal(t, notify.KindLeadReceived, on.dispatcher.sent[0].Kind)
	assert.Equal(t, "owner@example.com", on.dispatcher.sent[0].Recipient())
}

func TestGet_MarksViewedOnce(t *testing.T) {
	f := newFixture(t)
	b := f.business(t, models.PlanBasic, models.BusinessStatusActive)
	res := f.submit(t, b.ID, "hello there")

	lead, err := f.svc.Get(context.Background(), f.owner, b.ID, res.LeadID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusViewed, lead.Status)
	require.NotNil(t, lead.ViewedAt)
	firstViewed := *lead.ViewedAt

	f.clock.t = f.clock.t.Add(time.Hour)
	lead, err = f.svc.Get(context.Background(), f.owner, b.ID, res.LeadID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusViewed, lead.Status)
	assert.Equal(t, firstViewed, *lead.ViewedAt)
}

func TestAdvance_TimestampsAreSetOnce(t *testing.T) {
	f := newFixture(t)
	b := f.business(t, models.PlanBasic, models.BusinessStatusActive)
	res := f.submit(t, b.ID, "hello there")
	ctx := context.Background()

	lead, err := f.svc.Advance(ctx, f.owner, b.ID, res.LeadID, models.LeadStatusContacted)
	require.NoError(t, err)
	require.NotNil(t, lead.RespondedAt)
	firstResponse := *lead.RespondedAt

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	_, err = f.svc.Advance(ctx, f.owner, b.ID, res.LeadID, models.LeadStatusQualified)
	require.NoError(t, err)
	lead, err = f.svc.Advance(ctx, f.owner, b.ID, res.LeadID, models.LeadStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, firstResponse, *lead.RespondedAt)

	lead, err = f.svc.Advance(ctx, f.owner, b.ID, res.LeadID, models.LeadStatusConverted)
	require.NoError(t, err)
	require.NotNil(t, lead.ConvertedAt)
	assert.Equal(t, f.clock.t, *lead.ConvertedAt)

	// moving backwards never clears a timestamp
	lead, err = f.svc.Advance(ctx, f.owner, b.ID, res.LeadID, models.LeadStatusNew)
	require.NoError(t, err)
	assert.NotNil(t, lead.RespondedAt)
	assert.NotNil(t, lead.ConvertedAt)
}

func TestAdvance_Authorization(t *testing.T) {
	f := newFixture(t)
	b := f.business(t, models.PlanBasic, models.BusinessStatusActive)
	res := f.submit(t, b.ID, "hello there")
	ctx := context.Background()

	stranger := access.Principal{UserID: 4242, Role: models.RoleBusinessOwner, Authenticated: true}
	_, err := f.svc.Advance(ctx, stranger, b.ID, res.LeadID, models.LeadStatusContacted)
	assert.True(t, apperror.IsCode(err, apperror.CodeRoleForbidden))

	_, err = f.svc.Advance(ctx, access.Anonymous(), b.ID, res.LeadID, models.LeadStatusContacted)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthenticated))

	support := access.Principal{UserID: 1, Role: models.RoleSupport, Authenticated: true}
	_, err = f.svc.Advance(ctx, support, b.ID, res.LeadID, models.LeadStatusContacted)
	assert.NoError(t, err)
}

func TestAdvance_LeadOfOtherBusinessIsNotFound(t *testing.T) {
	f := newFixture(t)
	b1 := f.business(t, models.PlanBasic, models.BusinessStatusActive)
	b2 := f.business(t, models.PlanPro, models.BusinessStatusActive)
	res := f.submit(t, b1.ID, "hello there")

	_, err := f.svc.Advance(context.Background(), f.owner, b2.ID, res.LeadID, models.LeadStatusContacted)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	_, err = f.svc.Advance(context.Background(), f.owner, b1.ID, res.LeadID, "LOST")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	b := f.business(t, models.PlanBasic, models.BusinessStatusActive)
	first := f.submit(t, b.ID, "first")
	f.submit(t, b.ID, "second")

	_, err := f.svc.Get(context.Background(), f.owner, b.ID, first.LeadID)
	require.NoError(t, err)

	leads, total, err := f.svc.List(context.Background(), f.owner, b.ID, repository.LeadFilter{Status: models.LeadStatusNew}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, leads, 1)
	assert.Equal(t, "second", leads[0].Message)
}
