package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/orchestrator/pkg/clients"
	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeActionClient struct {
	executeFn func(ctx context.Context, action plan.Action) (clients.ExecuteResult, error)
}

func (f *fakeActionClient) Execute(ctx context.Context, action plan.Action) (clients.ExecuteResult, error) {
	return f.executeFn(ctx, action)
}

func TestRun_AllSucceed(t *testing.T) {
	client := &fakeActionClient{executeFn: func(ctx context.Context, action plan.Action) (clients.ExecuteResult, error) {
		return clients.ExecuteResult{Status: "success", Result: "ok"}, nil
	}}
	ex := New(client, time.Second, false, testLogger())

	p := plan.Plan{Actions: []plan.Action{{Tool: "open_app"}, {Tool: "close_app"}}}
	outcomes := ex.Run(context.Background(), p)

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, plan.OutcomeSuccess, o.Status)
	}
}

func TestRun_Timeout(t *testing.T) {
	client := &fakeActionClient{executeFn: func(ctx context.Context, action plan.Action) (clients.ExecuteResult, error) {
		<-ctx.Done()
		return clients.ExecuteResult{}, ctx.Err()
	}}
	ex := New(client, 20*time.Millisecond, false, testLogger())

	p := plan.Plan{Actions: []plan.Action{{Tool: "slow_tool"}}}
	outcomes := ex.Run(context.Background(), p)

	require.Len(t, outcomes, 1)
	assert.Equal(t, plan.OutcomeTimeout, outcomes[0].Status)
}

func TestRun_StopOnCritical(t *testing.T) {
	calls := 0
	client := &fakeActionClient{executeFn: func(ctx context.Context, action plan.Action) (clients.ExecuteResult, error) {
		calls++
		if action.Tool == "a" {
			return clients.ExecuteResult{}, errors.New("boom")
		}
		return clients.ExecuteResult{Status: "success"}, nil
	}}
	ex := New(client, time.Second, false, testLogger())

	p := plan.Plan{Actions: []plan.Action{
		{Tool: "a", Critical: true},
		{Tool: "b"},
	}}
	outcomes := ex.Run(context.Background(), p)

	require.Len(t, outcomes, 1)
	assert.Equal(t, plan.OutcomeError, outcomes[0].Status)
	assert.Equal(t, 1, calls)
}

func TestRun_NonCriticalFailureContinues(t *testing.T) {
	client := &fakeActionClient{executeFn: func(ctx context.Context, action plan.Action) (clients.ExecuteResult, error) {
		if action.Tool == "a" {
			return clients.ExecuteResult{}, errors.New("boom")
		}
		return clients.ExecuteResult{Status: "success"}, nil
	}}
	ex := New(client, time.Second, false, testLogger())

	p := plan.Plan{Actions: []plan.Action{{Tool: "a"}, {Tool: "b"}}}
	outcomes := ex.Run(context.Background(), p)

	require.Len(t, outcomes, 2)
	assert.Equal(t, plan.OutcomeError, outcomes[0].Status)
	assert.Equal(t, plan.OutcomeSuccess, outcomes[1].Status)
}

func TestRun_DryRunNeverCallsClient(t *testing.T) {
	calls := 0
	client := &fakeActionClient{executeFn: func(ctx context.Context, action plan.Action) (clients.ExecuteResult, error) {
		calls++
		return clients.ExecuteResult{Status: "success"}, nil
	}}
	ex := New(client, time.Second, true, testLogger())

	p := plan.Plan{Actions: []plan.Action{{Tool: "unlock_door", Critical: true}}}
	outcomes := ex.Run(context.Background(), p)

	require.Len(t, outcomes, 1)
	assert.Equal(t, plan.OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, 0, calls)
}
