package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cecil-the-coder/orchestrator-kit/internal/testutil"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/breaker"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/cache"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/strategy"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

func cost(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "no providers")

	_, err = New(Config{Providers: []types.Provider{
		testutil.NewMockProvider("dup"),
		testutil.NewMockProvider("dup"),
	}})
	assert.Error(t, err, "duplicate names")
}

func TestProcess_FirstCandidateSuccessStopsChain(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1).WithData("from-a")
	b := testutil.NewMockProvider("b").WithPriority(2)

	m := newManager(t, Config{Providers: []types.Provider{a, b}})

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr", Payload: []byte("x")})
	require.NoError(t, err)

	assert.Equal(t, "a", res.Provider)
	assert.Equal(t, "from-a", res.Data)
	assert.Equal(t, 1, a.ProcessCalls())
	assert.Zero(t, b.ProcessCalls(), "lower-ranked candidate must not be invoked")
}

func TestProcess_FallbackToSecondCandidate(t *testing.T) {
	// Priority strategy, A forced to fail, B succeeds with cost 0.002.
	// Expect one failed call to A, one successful call to B, final
	// provider B and two ledger entries.
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetFail("upstream 503")
	b := testutil.NewMockProvider("b").WithPriority(2).WithCost(cost("0.002"))

	m := newManager(t, Config{Providers: []types.Provider{a, b}})

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)

	assert.Equal(t, "b", res.Provider)
	assert.Equal(t, 1, a.ProcessCalls())
	assert.Equal(t, 1, b.ProcessCalls())

	recs := m.Costs().Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Provider)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "b", recs[1].Provider)
	assert.True(t, recs[1].Success)
	assert.True(t, recs[1].Cost.Equal(cost("0.002")))
}

func TestProcess_AllFailReturnsAggregateError(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetFail("boom a")
	b := testutil.NewMockProvider("b").WithPriority(2)
	b.SetFail("boom b")

	m := newManager(t, Config{Providers: []types.Provider{a, b}})

	_, err := m.Process(context.Background(), types.Request{Operation: "translate"})
	require.Error(t, err)

	var agg *types.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, "translate", agg.Operation)
	assert.Equal(t, 2, agg.Attempted(), "attempted count equals configured providers")
	assert.Contains(t, agg.Error(), "boom a")
	assert.Contains(t, agg.Error(), "boom b")
}

func TestProcess_ValidationSkipDoesNotTouchBreaker(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetInvalidInput(true)
	b := testutil.NewMockProvider("b").WithPriority(2)

	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 1})
	m := newManager(t, Config{Providers: []types.Provider{a, b}, Breakers: breakers})

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)

	assert.Equal(t, "b", res.Provider)
	assert.Zero(t, a.ProcessCalls(), "invalid input skips without invoking")
	assert.Equal(t, breaker.StateClosed, breakers.Get("a").State())
	assert.Zero(t, breakers.Get("a").Failures())
	// No cost record for a skipped provider.
	require.Len(t, m.Costs().Records(), 1)
	assert.Equal(t, "b", m.Costs().Records()[0].Provider)
}

func TestProcess_UnavailableHealthSkips(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetHealth(types.HealthUnavailable)
	b := testutil.NewMockProvider("b").WithPriority(2)

	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 1})
	m := newManager(t, Config{Providers: []types.Provider{a, b}, Breakers: breakers})

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)

	assert.Equal(t, "b", res.Provider)
	assert.Zero(t, a.ProcessCalls())
	assert.Zero(t, breakers.Get("a").Failures(), "health skip never counts against the breaker")
}

func TestProcess_DegradedProviderStillTried(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetHealth(types.HealthDegraded)

	m := newManager(t, Config{Providers: []types.Provider{a}})

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Provider)
}

func TestProcess_CircuitOpensAfterThreshold(t *testing.T) {
	// Threshold 3, three consecutive failures on A. The fourth request,
	// before cool-down, must skip A entirely.
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetFail("down")
	b := testutil.NewMockProvider("b").WithPriority(2)

	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 3, CoolDown: time.Hour})
	m := newManager(t, Config{Providers: []types.Provider{a, b}, Breakers: breakers})

	for i := 0; i < 3; i++ {
		res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
		require.NoError(t, err)
		assert.Equal(t, "b", res.Provider)
	}
	require.Equal(t, 3, a.ProcessCalls())
	require.Equal(t, breaker.StateOpen, breakers.Get("a").State())

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider)
	assert.Equal(t, 3, a.ProcessCalls(), "open circuit goes straight to the next candidate")
}

func TestProcess_HalfOpenTrialRecovers(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetFail("down")
	b := testutil.NewMockProvider("b").WithPriority(2)

	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, CoolDown: 30 * time.Millisecond})
	m := newManager(t, Config{Providers: []types.Provider{a, b}, Breakers: breakers})

	_, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	require.Equal(t, 1, a.ProcessCalls())
	require.Equal(t, breaker.StateOpen, breakers.Get("a").State())

	// Within the cool-down the provider stays excluded.
	_, err = m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	require.Equal(t, 1, a.ProcessCalls())

	time.Sleep(40 * time.Millisecond)
	a.SetSucceed()

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Provider, "trial call permitted after cool-down")
	assert.Equal(t, 2, a.ProcessCalls())
	assert.Equal(t, breaker.StateClosed, breakers.Get("a").State(), "trial success returns provider to normal selection")
}

func TestProcess_HalfOpenTrialFailureReopens(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetFail("down")
	b := testutil.NewMockProvider("b").WithPriority(2)

	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, CoolDown: 30 * time.Millisecond})
	m := newManager(t, Config{Providers: []types.Provider{a, b}, Breakers: breakers})

	_, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	// Trial fails: exactly one call, then excluded again.
	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider)
	assert.Equal(t, 2, a.ProcessCalls())
	assert.Equal(t, breaker.StateOpen, breakers.Get("a").State())

	_, err = m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	assert.Equal(t, 2, a.ProcessCalls(), "remains excluded for another cool-down")
}

func TestProcess_CacheHitSkipsProviders(t *testing.T) {
	a := testutil.NewMockProvider("a").WithData("expensive").WithCost(cost("0.01"))
	store := cache.NewMemoryStore(16)
	m := newManager(t, Config{
		Providers: []types.Provider{a},
		Cache:     cache.New(store, time.Minute),
	})
	req := types.Request{Operation: "ocr", Payload: []byte("doc"), Options: map[string]string{"lang": "en"}}

	first, err := m.Process(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, a.ProcessCalls())

	second, err := m.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, a.ProcessCalls(), "cache hit must not invoke any provider")
	assert.Equal(t, first.Provider, second.Provider)
	assert.Equal(t, "expensive", second.Data)
	assert.Equal(t, true, second.Metadata["cached"])
	assert.Len(t, m.Costs().Records(), 1, "no cost recorded on a cache hit")
}

func TestProcess_CacheExpiryInvokesAgain(t *testing.T) {
	a := testutil.NewMockProvider("a")
	m := newManager(t, Config{
		Providers: []types.Provider{a},
		Cache:     cache.New(cache.NewMemoryStore(16), 30*time.Millisecond),
	})
	req := types.Request{Operation: "ocr", Payload: []byte("doc")}

	_, err := m.Process(context.Background(), req)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = m.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, a.ProcessCalls(), "expired entry triggers a fresh call")
}

func TestProcess_FailuresAreNotCached(t *testing.T) {
	a := testutil.NewMockProvider("a")
	a.SetFail("flaky")
	m := newManager(t, Config{
		Providers: []types.Provider{a},
		Cache:     cache.New(cache.NewMemoryStore(16), time.Minute),
	})
	req := types.Request{Operation: "ocr"}

	_, err := m.Process(context.Background(), req)
	require.Error(t, err)

	a.SetSucceed()
	res, err := m.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Provider)
	assert.Equal(t, 2, a.ProcessCalls(), "a transient failure must not be frozen for the TTL window")
}

func TestProcess_ConcurrentSameKeyCollapsed(t *testing.T) {
	a := testutil.NewMockProvider("a").WithDelay(50 * time.Millisecond)
	m := newManager(t, Config{
		Providers: []types.Provider{a},
		Cache:     cache.New(cache.NewMemoryStore(16), time.Minute),
	})
	req := types.Request{Operation: "ocr", Payload: []byte("same")}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Process(context.Background(), req)
			assert.NoError(t, err)
			assert.Equal(t, "a", res.Provider)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, a.ProcessCalls(), "concurrent identical requests share one provider call")
}

func TestProcess_CallTimeoutCountsAsFailure(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1).BlockUntilCancelled()
	b := testutil.NewMockProvider("b").WithPriority(2)

	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 5})
	m := newManager(t, Config{
		Providers:   []types.Provider{a, b},
		Breakers:    breakers,
		CallTimeout: 20 * time.Millisecond,
	})

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)

	assert.Equal(t, "b", res.Provider, "timed-out provider falls back to the next candidate")
	assert.Equal(t, 1, breakers.Get("a").Failures(), "timeout counts against the circuit breaker")

	recs := m.Costs().Records()
	require.Len(t, recs, 2)
	assert.False(t, recs[0].Success)
}

func TestProcess_CancellationStopsChain(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	a.SetFail("slow failure")
	b := testutil.NewMockProvider("b").WithPriority(2)

	m := newManager(t, Config{Providers: []types.Provider{a, b}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Process(ctx, types.Request{Operation: "ocr"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.ProcessCalls())
	assert.Zero(t, b.ProcessCalls())
}

func TestProcess_StrategyOrdersCandidates(t *testing.T) {
	// Cost strategy must route to the cheapest provider first.
	expensive := testutil.NewMockProvider("expensive").WithPriority(1).WithEstimate(cost("0.01"))
	cheap := testutil.NewMockProvider("cheap").WithPriority(2).WithEstimate(cost("0.001"))

	m := newManager(t, Config{
		Providers: []types.Provider{expensive, cheap},
		Strategy:  strategy.Cost{},
	})

	res, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.NoError(t, err)
	assert.Equal(t, "cheap", res.Provider)
	assert.Zero(t, expensive.ProcessCalls())
}

func TestEstimateCost(t *testing.T) {
	a := testutil.NewMockProvider("a").WithEstimate(cost("0.002"))
	b := testutil.NewMockProvider("b").WithEstimate(cost("0.005"))

	m := newManager(t, Config{Providers: []types.Provider{a, b}})

	estimates := m.EstimateCost(types.Request{Operation: "ocr"})
	require.Len(t, estimates, 2)
	assert.True(t, estimates["a"].Equal(cost("0.002")))
	assert.True(t, estimates["b"].Equal(cost("0.005")))
}

func TestHealthCheckAll(t *testing.T) {
	a := testutil.NewMockProvider("a")
	b := testutil.NewMockProvider("b")
	b.SetHealth(types.HealthDegraded)

	m := newManager(t, Config{Providers: []types.Provider{a, b}})

	states := m.HealthCheckAll(context.Background())
	assert.Equal(t, map[string]types.HealthState{
		"a": types.HealthAvailable,
		"b": types.HealthDegraded,
	}, states)
}

func TestProcess_ConcurrentRequests(t *testing.T) {
	a := testutil.NewMockProvider("a").WithPriority(1)
	b := testutil.NewMockProvider("b").WithPriority(2)

	m := newManager(t, Config{Providers: []types.Provider{a, b}})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Process(context.Background(), types.Request{
				Operation: "ocr",
				Payload:   []byte{byte(i)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 50, a.ProcessCalls())
}

func TestProcess_IndependentManagersDoNotInterfere(t *testing.T) {
	shared := testutil.NewMockProvider("shared")
	shared.SetFail("down")

	m1 := newManager(t, Config{
		Providers: []types.Provider{testutil.NewMockProvider("p1"), shared},
		Breakers:  breaker.NewRegistry(breaker.Config{FailureThreshold: 1}),
	})
	m2 := newManager(t, Config{
		Providers: []types.Provider{shared},
		Breakers:  breaker.NewRegistry(breaker.Config{FailureThreshold: 1}),
	})

	// Open the breaker for "shared" inside m2 only.
	_, err := m2.Process(context.Background(), types.Request{Operation: "ocr"})
	require.Error(t, err)

	assert.Equal(t, breaker.StateClosed, m1.BreakerStates()["shared"],
		"breaker state is owned per manager, not process-wide")
	assert.Equal(t, breaker.StateOpen, m2.BreakerStates()["shared"])
}

func TestProcess_ErrorReachableViaErrorsAs(t *testing.T) {
	a := testutil.NewMockProvider("a").BlockUntilCancelled()
	m := newManager(t, Config{Providers: []types.Provider{a}, CallTimeout: 10 * time.Millisecond})

	_, err := m.Process(context.Background(), types.Request{Operation: "ocr"})
	require.Error(t, err)

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, types.ErrCodeTimeout, pe.Code)
}
