package executor

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/abendrothj/doppel/internal/model"
)

// EndpointPlan is one endpoint's full TestCase set from the planner,
// with its first entry always the Baseline case (spec §4.3).
type EndpointPlan struct {
	Endpoint *model.Endpoint
	Cases    []model.TestCase
}

// Outcome pairs one Swap/Mutation TestCase with its endpoint's baseline
// response and (if it ran) its own attack response. Attack is nil when
// the case was never dispatched — baseline failure, planner-side skip,
// or cancellation — which the Verdict Engine turns into an UNCERTAIN
// finding without ever touching the network.
type Outcome struct {
	TestCase model.TestCase
	Baseline *model.ResponseRecord
	Attack   *model.ResponseRecord
}

// Run executes every endpoint plan: baseline first and to completion,
// then (if the baseline was 2xx) the rest of that endpoint's cases
// concurrently, bounded globally by concurrency in-flight requests.
// Endpoints themselves run concurrently with each other — the engine
// does not serialize across endpoints, only within one (spec §4.4).
func Run(ctx context.Context, client *Client, plans []EndpointPlan, concurrency int64) []Outcome {
	sem := semaphore.NewWeighted(concurrency)
	results := make(chan []Outcome, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	for _, plan := range plans {
		plan := plan
		g.Go(func() error {
			results <- runEndpoint(gctx, client, sem, plan)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	var all []Outcome
	for r := range results {
		all = append(all, r...)
	}
	return all
}

func runEndpoint(ctx context.Context, client *Client, sem *semaphore.Weighted, plan EndpointPlan) []Outcome {
	if len(plan.Cases) == 0 {
		return nil
	}

	baselineCase := plan.Cases[0]
	attackCases := plan.Cases[1:]

	if len(attackCases) == 0 {
		// Every parameter scored below the targetable threshold (or the
		// endpoint has none). Nothing to attack, so no baseline request
		// is even dispatched — report this endpoint as skipped instead
		// of letting it vanish from the findings entirely.
		return []Outcome{{TestCase: noTargetableParametersCase(baselineCase)}}
	}

	var baseline *model.ResponseRecord
	if err := sem.Acquire(ctx, 1); err != nil {
		baseline = &model.ResponseRecord{Err: ctx.Err()}
	} else {
		baseline = client.Do(ctx, baselineCase)
		sem.Release(1)
	}

	if !baseline.IsSuccess() {
		outcomes := make([]Outcome, 0, len(attackCases))
		for _, tc := range attackCases {
			outcomes = append(outcomes, Outcome{TestCase: tc, Baseline: baseline, Attack: nil})
		}
		return outcomes
	}

	outcomes := make([]Outcome, len(attackCases))
	var wg errgroup.Group
	for i, tc := range attackCases {
		i, tc := i, tc
		wg.Go(func() error {
			outcomes[i] = dispatchCase(ctx, client, sem, baseline, tc)
			return nil
		})
	}
	_ = wg.Wait()
	return outcomes
}

// noTargetableParametersCase builds the placeholder TestCase for an
// endpoint the Planner built no attack cases for, so the Verdict
// Engine routes it straight to an UNCERTAIN/skipped Finding instead of
// the endpoint vanishing from every report. HEAD/OPTIONS endpoints get
// their own reason (spec §9 Open Question (a): never attacked by
// design, not a scoring outcome); everything else means the Risk
// Engine scored every parameter below the targetable threshold.
func noTargetableParametersCase(baseline model.TestCase) model.TestCase {
	reason := "no targetable parameters"
	if baseline.Method == model.MethodHead || baseline.Method == model.MethodOptions {
		reason = "HEAD/OPTIONS is never attacked"
	}
	return model.TestCase{
		Index:          1,
		EndpointID:     baseline.EndpointID,
		URL:            baseline.URL,
		Method:         baseline.Method,
		Classification: model.ClassBaseline,
		Skipped:        true,
		SkippedReason:  reason,
	}
}

func dispatchCase(ctx context.Context, client *Client, sem *semaphore.Weighted, baseline *model.ResponseRecord, tc model.TestCase) Outcome {
	if tc.Skipped {
		return Outcome{TestCase: tc, Baseline: baseline, Attack: nil}
	}
	if ctx.Err() != nil {
		return Outcome{TestCase: tc, Baseline: baseline, Attack: nil}
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return Outcome{TestCase: tc, Baseline: baseline, Attack: nil}
	}
	defer sem.Release(1)

	return Outcome{TestCase: tc, Baseline: baseline, Attack: client.Do(ctx, tc)}
}
