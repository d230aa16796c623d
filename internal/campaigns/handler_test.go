package campaigns

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
	"github.com/nimbus-crm/backend/pkg/queue"
)

type fakeSendStore struct {
	emails      []string
	emailsErr   error
	markSentErr error
	sent        int
	resets      int
}

func (f *fakeSendStore) RecipientEmails(_ context.Context, _ int64) ([]string, error) {
	return f.emails, f.emailsErr
}

func (f *fakeSendStore) MarkSent(_ context.Context, _ tenancy.Scope, _ int64) error {
	f.sent++
	return f.markSentErr
}

func (f *fakeSendStore) ResetDraft(_ context.Context, _ tenancy.Scope, _ int64) error {
	f.resets++
	return nil
}

type fakeDispatcher struct {
	payloads []queue.EmailPayload
	err      error
}

func (f *fakeDispatcher) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, p)
	return nil
}

type capturedEvent struct {
	tenantID int64
	event    string
	data     interface{}
}

type fakePublisher struct {
	events []capturedEvent
}

func (f *fakePublisher) Publish(tenantID int64, event string, data interface{}) {
	f.events = append(f.events, capturedEvent{tenantID: tenantID, event: event, data: data})
}

func sendScope() tenancy.Scope {
	tid := int64(4)
	user := &models.User{ID: 2, TenantID: &tid}
	return tenancy.NewScope(tenancy.Flags{}, user, tenancy.Resolution{TenantID: 4, Source: tenancy.SourcePrincipal})
}

func sendCampaign() *models.Campaign {
	return &models.Campaign{
		ID:       10,
		Tenancy:  models.Tenancy{TenantID: 4},
		Subject:  "Spring launch",
		BodyHTML: "<p>hello</p>",
		Status:   models.CampaignStatusSending,
	}
}

func TestDispatchEnqueuesAndPublishes(t *testing.T) {
	store := &fakeSendStore{emails: []string{"a@example.com", "b@example.com"}}
	q := &fakeDispatcher{}
	events := &fakePublisher{}
	campaign := sendCampaign()

	enqueued, err := dispatch(context.Background(), store, q, events, sendScope(), campaign, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)
	assert.Len(t, q.payloads, 2)
	assert.Equal(t, "Spring launch", q.payloads[0].Subject)
	assert.Equal(t, 1, store.sent)
	assert.Equal(t, 0, store.resets)
	assert.Equal(t, models.CampaignStatusSent, campaign.Status)

	require.Len(t, events.events, 1)
	assert.Equal(t, int64(4), events.events[0].tenantID)
	assert.Equal(t, "campaign.sent", events.events[0].event)
}

func TestDispatchResetsDraftWhenRecipientsFail(t *testing.T) {
	store := &fakeSendStore{emailsErr: errors.New("connection reset")}
	q := &fakeDispatcher{}
	events := &fakePublisher{}
	campaign := sendCampaign()

	_, err := dispatch(context.Background(), store, q, events, sendScope(), campaign, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, 1, store.resets)
	assert.Equal(t, 0, store.sent)
	assert.Empty(t, q.payloads)
	assert.Empty(t, events.events)
	assert.Equal(t, models.CampaignStatusSending, campaign.Status)
}

func TestDispatchResetsDraftWhenMarkSentFails(t *testing.T) {
	store := &fakeSendStore{
		emails:      []string{"a@example.com"},
		markSentErr: errors.New("connection reset"),
	}
	events := &fakePublisher{}
	campaign := sendCampaign()

	_, err := dispatch(context.Background(), store, &fakeDispatcher{}, events, sendScope(), campaign, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, 1, store.resets)
	assert.Empty(t, events.events)
}

func TestDispatchResetsDraftWhenNothingEnqueues(t *testing.T) {
	store := &fakeSendStore{emails: []string{"a@example.com", "b@example.com"}}
	q := &fakeDispatcher{err: errors.New("queue unavailable")}
	campaign := sendCampaign()

	enqueued, err := dispatch(context.Background(), store, q, nil, sendScope(), campaign, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, 0, enqueued)
	assert.Equal(t, 1, store.resets)
	assert.Equal(t, 0, store.sent)
}

func TestDispatchWithoutPublisher(t *testing.T) {
	store := &fakeSendStore{emails: []string{"a@example.com"}}
	campaign := sendCampaign()

	enqueued, err := dispatch(context.Background(), store, &fakeDispatcher{}, nil, sendScope(), campaign, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, enqueued)
}
