package estimator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeInvoker returns queued results in order; an entry with err != nil
// simulates a failed attempt.
type fakeInvoker struct {
	calls   int
	replies []fakeReply
}

type fakeReply struct {
	text string
	err  error
}

func (f *fakeInvoker) Generate(_ context.Context, _ string) (string, error) {
	r := f.replies[f.calls]
	f.calls++
	return r.text, r.err
}

func newTestService(inv Invoker) (*Service, *[]time.Duration) {
	s := New(inv, zap.NewNop())
	var delays []time.Duration
	s.sleep = func(d time.Duration) { delays = append(delays, d) }
	return s, &delays
}

func TestEstimateRetriesTransientThenSucceeds(t *testing.T) {
	inv := &fakeInvoker{replies: []fakeReply{
		{err: errors.New("rpc error: code 503 service overloaded")},
		{err: errors.New("UNAVAILABLE: try again later")},
		{text: validReply},
	}}
	s, delays := newTestService(inv)

	resp := s.Estimate(context.Background(), "Add user login with email and password")

	require.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, 3, inv.calls)
	require.Len(t, *delays, 2)
	assert.Equal(t, 2*time.Second, (*delays)[0])
	assert.Equal(t, 4*time.Second, (*delays)[1])
	assert.Greater(t, (*delays)[1], (*delays)[0])
}

func TestEstimateNonTransientFailsImmediately(t *testing.T) {
	inv := &fakeInvoker{replies: []fakeReply{
		{err: errors.New("invalid API key")},
	}}
	s, delays := newTestService(inv)

	resp := s.Estimate(context.Background(), "Add user login")

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid API key")
	assert.Equal(t, 1, inv.calls)
	assert.Empty(t, *delays)
	// failure still yields a fully-shaped estimate
	assert.Equal(t, "Manual Review Required", resp.Title)
	assert.Equal(t, []string{"needs-analysis"}, resp.Estimate.SuggestedLabels)
	assert.NotNil(t, resp.Estimate.Dependencies)
}

func TestEstimateRetriesExhausted(t *testing.T) {
	transient := fakeReply{err: errors.New("503 UNAVAILABLE")}
	inv := &fakeInvoker{replies: []fakeReply{transient, transient, transient}}
	s, delays := newTestService(inv)

	resp := s.Estimate(context.Background(), "Add user login")

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, 3, inv.calls)
	assert.Len(t, *delays, 2)
}

func TestEstimateEndToEndTitlePolicy(t *testing.T) {
	inv := &fakeInvoker{replies: []fakeReply{{text: "```json\n" + validReply + "\n```"}}}
	s, _ := newTestService(inv)

	resp := s.Estimate(context.Background(), "Add user login with email and password")

	require.True(t, resp.Success)
	assert.Equal(t, "Add user email login", resp.Title)
	assert.Equal(t, TicketID("Add user login with email and password"), resp.TicketID)
	assert.Regexp(t, ticketNumberRe, resp.TicketNumber)
}

func TestEstimateDegradedReplyStillSucceeds(t *testing.T) {
	inv := &fakeInvoker{replies: []fakeReply{{text: "sorry, I cannot answer in JSON"}}}
	s, _ := newTestService(inv)

	task := "Refactor the payment reconciliation job"
	resp := s.Estimate(context.Background(), task)

	require.True(t, resp.Success)
	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Error)
	assert.Contains(t, resp.Estimate.Reasoning, task)
	// "Task Needs Analysis" is 3 words and passes the title policy
	assert.Equal(t, "Task Needs Analysis", resp.Title)
}
