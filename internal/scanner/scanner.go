// Package scanner is the top-level orchestrator: parser → risk →
// planner → executor → verdict, wired the way the teacher's cmd/main.go
// wires config → components → run (minus its broken, unreachable
// second half).
package scanner

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/abendrothj/doppel/internal/advisor"
	"github.com/abendrothj/doppel/internal/config"
	"github.com/abendrothj/doppel/internal/dashboard"
	"github.com/abendrothj/doppel/internal/executor"
	"github.com/abendrothj/doppel/internal/logging"
	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/parser"
	"github.com/abendrothj/doppel/internal/planner"
	"github.com/abendrothj/doppel/internal/risk"
	"github.com/abendrothj/doppel/internal/verdict"
)

// Scanner wires every pipeline stage together for one run. Dashboard
// and Advisor are both optional collaborators — a nil value simply
// skips that stage.
type Scanner struct {
	Logger    *logging.Logger
	Dashboard *dashboard.Hub
	Advisor   *advisor.Advisor

	ResourceMapper *risk.ResourceMapper

	// ScanID identifies one Run invocation in logs and dashboard
	// events. Unlike Endpoint/Finding ids it has no determinism
	// requirement, so it's a random v4 UUID rather than a content hash.
	ScanID string
}

// New builds a Scanner with a resource mapper ready to receive every
// parsed endpoint.
func New(logger *logging.Logger) *Scanner {
	return &Scanner{
		Logger:         logger,
		ResourceMapper: risk.NewResourceMapper(),
		ScanID:         uuid.NewString(),
	}
}

// Run executes one full scan: parse the input, score every parameter,
// plan and execute every endpoint's test cases, and judge every
// outcome. Findings are returned sorted by (EndpointID, TestCase.Index)
// for diffable reports across runs (spec §8).
func (s *Scanner) Run(ctx context.Context, opts config.Options) ([]model.Finding, error) {
	endpoints, baseURL, err := parser.Parse(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	s.log("[%s] parsed %d endpoints from %s", s.ScanID, len(endpoints), opts.Input)

	for i := range endpoints {
		e := &endpoints[i]
		for j := range e.Parameters {
			e.Parameters[j].Risk = risk.Score(e.Parameters[j], e.Method)
		}
		s.ResourceMapper.Add(e)
	}

	client := executor.NewClient(executor.ClientOptions{
		Timeout:        opts.Timeout,
		ConnectTimeout: opts.ConnectTimeout,
	})

	plannerOpts := planner.Options{
		AttackerToken:     opts.AttackerToken,
		VictimID:          opts.VictimID,
		MutationalFuzzing: opts.MutationalFuzzing,
	}

	plans := make([]executor.EndpointPlan, 0, len(endpoints))
	for i := range endpoints {
		e := &endpoints[i]
		plans = append(plans, executor.EndpointPlan{
			Endpoint: e,
			Cases:    planner.Plan(e, baseURL, plannerOpts),
		})
	}

	outcomes := executor.Run(ctx, client, plans, int64(opts.Concurrency))
	s.log("[%s] executed %d test cases across %d endpoints", s.ScanID, len(outcomes), len(endpoints))

	verdictOpts := verdict.Options{SoftFailAnalysis: opts.SoftFailAnalysis}
	findings := make([]model.Finding, 0, len(outcomes))
	for _, o := range outcomes {
		f := verdict.Judge(o, verdictOpts)
		f.ID = model.FindingID(f.EndpointID, f.TestCase.Index)
		findings = append(findings, f)
	}

	if opts.PIIAnalysis && s.Advisor != nil {
		for i := range findings {
			if findings[i].Verdict != model.VerdictVulnerable {
				continue
			}
			if err := s.Advisor.Downgrade(ctx, &findings[i]); err != nil {
				s.log("pii advisor error for %s: %v", findings[i].EndpointID, err)
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].EndpointID != findings[j].EndpointID {
			return findings[i].EndpointID < findings[j].EndpointID
		}
		return findings[i].TestCase.Index < findings[j].TestCase.Index
	})

	if s.Dashboard != nil {
		for _, f := range findings {
			s.Dashboard.BroadcastFinding(f)
		}
		s.Dashboard.BroadcastDone(s.ScanID)
	}

	return findings, nil
}

func (s *Scanner) log(format string, args ...interface{}) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info(format, args...)
}
