package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
)

type recordingEnqueuer struct {
	jobType    JobType
	payload    map[string]interface{}
	maxRetries int
	err        error
}

func (r *recordingEnqueuer) EnqueueJobWithRetries(_ context.Context, jobType JobType, payload map[string]interface{}, maxRetries int) (*Job, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.jobType = jobType
	r.payload = payload
	r.maxRetries = maxRetries
	return &Job{ID: "job-1", Type: jobType, Payload: payload, MaxRetries: maxRetries}, nil
}

type fakeNotifier struct {
	statusChanges []notify.StatusChange
	emails        []notify.Email
	err           error
}

func (f *fakeNotifier) SendBusinessStatusChange(_ context.Context, msg notify.StatusChange) (string, error) {
	f.statusChanges = append(f.statusChanges, msg)
	return "id-1", f.err
}

func (f *fakeNotifier) SendWelcome(context.Context, notify.Welcome) (string, error) {
	return "id-2", f.err
}

func (f *fakeNotifier) SendLeadReceived(context.Context, notify.LeadReceived) (string, error) {
	return "id-3", f.err
}

func (f *fakeNotifier) SendEmail(_ context.Context, msg notify.Email) (string, error) {
	f.emails = append(f.emails, msg)
	return "id-4", f.err
}

func statusMessage() notify.Message {
	return notify.Message{
		Kind: notify.KindStatusChange,
		StatusChange: &notify.StatusChange{
			BusinessID:   7,
			BusinessName: "Joe's Cafe",
			OwnerEmail:   "joe@example.com",
			Status:       models.BusinessStatusRejected,
			Kind:         notify.KindRejected,
			Reason:       "Missing address",
		},
	}
}

func TestNotificationDispatcher_EnqueuesFireOnce(t *testing.T) {
	q := &recordingEnqueuer{}
	d := NewNotificationDispatcher(q)

	require.NoError(t, d.Dispatch(context.Background(), statusMessage()))
	assert.Equal(t, JobTypeNotification, q.jobType)
	assert.Equal(t, 0, q.maxRetries)

	// the stored payload decodes back into the same message
	payload, err := NotificationJobPayloadFromMap(q.payload)
	require.NoError(t, err)
	assert.Equal(t, statusMessage(), payload.Message)
}

func TestNotificationDispatcher_EnqueueError(t *testing.T) {
	d := NewNotificationDispatcher(&recordingEnqueuer{err: errors.New("redis down")})
	assert.Error(t, d.Dispatch(context.Background(), statusMessage()))
}

func TestNotificationHandler_Delivers(t *testing.T) {
	n := &fakeNotifier{}
	payload, err := NotificationJobPayload{Message: statusMessage()}.ToMap()
	require.NoError(t, err)

	err = NotificationHandler(n)(context.Background(), &Job{ID: "j", Type: JobTypeNotification, Payload: payload})
	require.NoError(t, err)
	require.Len(t, n.statusChanges, 1)
	assert.Equal(t, "Missing address", n.statusChanges[0].Reason)
}

func TestNotificationHandler_PropagatesFailure(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp refused")}
	payload, err := NotificationJobPayload{Message: notify.Message{
		Kind:  notify.KindEmail,
		Email: &notify.Email{To: "a@example.com", Subject: "Hi", Body: "<p>Hi</p>"},
	}}.ToMap()
	require.NoError(t, err)

	err = NotificationHandler(n)(context.Background(), &Job{ID: "j", Payload: payload})
	assert.EqualError(t, err, "smtp refused")
	assert.Len(t, n.emails, 1)
}

func TestNotificationHandler_EmptyPayload(t *testing.T) {
	err := NotificationHandler(&fakeNotifier{})(context.Background(), &Job{ID: "j", Payload: map[string]interface{}{}})
	assert.Error(t, err)
}
