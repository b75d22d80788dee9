package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/model"
)

func TestClientDoCapturesFingerprint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","email":"a@b.com"}`))
	}))
	defer srv.Close()

	client := NewClient(DefaultClientOptions())
	rec := client.Do(context.Background(), model.TestCase{Method: model.MethodGet, URL: srv.URL})

	require.NoError(t, rec.Err)
	assert.True(t, rec.IsSuccess())
	assert.Equal(t, []string{"email", "id"}, rec.Fingerprint)
}

func TestClientDoTruncatesOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, model.MaxBodyBytes+1024))
	}))
	defer srv.Close()

	client := NewClient(DefaultClientOptions())
	rec := client.Do(context.Background(), model.TestCase{Method: model.MethodGet, URL: srv.URL})

	require.NoError(t, rec.Err)
	assert.True(t, rec.Truncated)
	assert.Len(t, rec.Body, model.MaxBodyBytes)
}

func TestClientDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	client := NewClient(DefaultClientOptions())
	rec := client.Do(context.Background(), model.TestCase{Method: model.MethodGet, URL: srv.URL})

	require.NoError(t, rec.Err)
	assert.Equal(t, http.StatusFound, rec.StatusCode)
}

func TestRunBaselineFailureShortCircuitsEndpoint(t *testing.T) {
	var attackHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/baseline":
			w.WriteHeader(http.StatusForbidden)
		default:
			atomic.AddInt32(&attackHits, 1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	plan := EndpointPlan{
		Endpoint: &model.Endpoint{ID: "ep1"},
		Cases: []model.TestCase{
			{Index: 0, EndpointID: "ep1", URL: srv.URL + "/baseline", Method: model.MethodGet, Classification: model.ClassBaseline},
			{Index: 1, EndpointID: "ep1", URL: srv.URL + "/attack", Method: model.MethodGet, Classification: model.ClassSwap},
		},
	}

	client := NewClient(DefaultClientOptions())
	outcomes := Run(context.Background(), client, []EndpointPlan{plan}, 10)

	require.Len(t, outcomes, 1)
	assert.Nil(t, outcomes[0].Attack)
	assert.Equal(t, http.StatusForbidden, outcomes[0].Baseline.StatusCode)
	assert.EqualValues(t, 0, atomic.LoadInt32(&attackHits))
}

func TestRunDispatchesAttacksAfterSuccessfulBaseline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	plan := EndpointPlan{
		Endpoint: &model.Endpoint{ID: "ep1"},
		Cases: []model.TestCase{
			{Index: 0, EndpointID: "ep1", URL: srv.URL, Method: model.MethodGet, Classification: model.ClassBaseline},
			{Index: 1, EndpointID: "ep1", URL: srv.URL, Method: model.MethodGet, Classification: model.ClassSwap},
			{Index: 2, EndpointID: "ep1", URL: srv.URL, Method: model.MethodGet, Classification: model.ClassMutation},
		},
	}

	client := NewClient(DefaultClientOptions())
	outcomes := Run(context.Background(), client, []EndpointPlan{plan}, 10)

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.NotNil(t, o.Attack)
		assert.True(t, o.Attack.IsSuccess())
	}
}

func TestRunSkipsPlannerMarkedSkippedCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	plan := EndpointPlan{
		Endpoint: &model.Endpoint{ID: "ep1"},
		Cases: []model.TestCase{
			{Index: 0, EndpointID: "ep1", URL: srv.URL, Method: model.MethodGet, Classification: model.ClassBaseline},
			{Index: 1, EndpointID: "ep1", Method: model.MethodGet, Classification: model.ClassSwap, Skipped: true, SkippedReason: "non-numeric victim id"},
		},
	}

	client := NewClient(DefaultClientOptions())
	outcomes := Run(context.Background(), client, []EndpointPlan{plan}, 10)

	require.Len(t, outcomes, 1)
	assert.Nil(t, outcomes[0].Attack)
}

func TestRunSynthesizesSkipForNoTargetableParameters(t *testing.T) {
	var baselineHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&baselineHits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	plan := EndpointPlan{
		Endpoint: &model.Endpoint{ID: "ep1"},
		Cases: []model.TestCase{
			{Index: 0, EndpointID: "ep1", URL: srv.URL, Method: model.MethodGet, Classification: model.ClassBaseline},
		},
	}

	client := NewClient(DefaultClientOptions())
	outcomes := Run(context.Background(), client, []EndpointPlan{plan}, 10)

	require.Len(t, outcomes, 1)
	assert.Nil(t, outcomes[0].Attack)
	assert.Nil(t, outcomes[0].Baseline)
	assert.True(t, outcomes[0].TestCase.Skipped)
	assert.Equal(t, "no targetable parameters", outcomes[0].TestCase.SkippedReason)
	assert.EqualValues(t, 0, atomic.LoadInt32(&baselineHits), "a skipped endpoint should never dispatch its baseline request")
}

func TestRunSynthesizesDistinctSkipForHeadOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	plan := EndpointPlan{
		Endpoint: &model.Endpoint{ID: "ep1"},
		Cases: []model.TestCase{
			{Index: 0, EndpointID: "ep1", URL: srv.URL, Method: model.MethodHead, Classification: model.ClassBaseline},
		},
	}

	client := NewClient(DefaultClientOptions())
	outcomes := Run(context.Background(), client, []EndpointPlan{plan}, 10)

	require.Len(t, outcomes, 1)
	assert.Equal(t, "HEAD/OPTIONS is never attacked", outcomes[0].TestCase.SkippedReason)
}

func TestRunRespectsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := EndpointPlan{
		Endpoint: &model.Endpoint{ID: "ep1"},
		Cases: []model.TestCase{
			{Index: 0, EndpointID: "ep1", URL: srv.URL, Method: model.MethodGet, Classification: model.ClassBaseline},
			{Index: 1, EndpointID: "ep1", URL: srv.URL, Method: model.MethodGet, Classification: model.ClassSwap},
		},
	}

	client := NewClient(DefaultClientOptions())
	outcomes := Run(ctx, client, []EndpointPlan{plan}, 10)

	require.Len(t, outcomes, 1)
	assert.Nil(t, outcomes[0].Attack)
}

func TestRunGlobalConcurrencyCap(t *testing.T) {
	var inFlight, maxSeen int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var plans []EndpointPlan
	for i := 0; i < 5; i++ {
		var cases []model.TestCase
		cases = append(cases, model.TestCase{Index: 0, URL: srv.URL, Method: model.MethodGet, Classification: model.ClassBaseline})
		for j := 0; j < 4; j++ {
			cases = append(cases, model.TestCase{Index: j + 1, URL: srv.URL, Method: model.MethodGet, Classification: model.ClassSwap})
		}
		plans = append(plans, EndpointPlan{Endpoint: &model.Endpoint{ID: "ep"}, Cases: cases})
	}

	client := NewClient(DefaultClientOptions())
	Run(context.Background(), client, plans, 3)

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 3)
}
