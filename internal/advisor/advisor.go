// Package advisor is the optional PII advisor (spec §6): a second,
// advisory-only opinion on a VULNERABLE finding's response body, backed
// by a local Ollama model instead of a cloud LLM. Grounded on the
// teacher's two-stage genkit.DefineFlow/genkit.Run orchestration in
// internal/driven/analyzer.go, with the cloud model plugin swapped for
// a plain-HTTP Ollama backend (spec §6 names Ollama as the one fixed
// backend; see DESIGN.md for why the teacher's googlegenai/openai-go
// plugins have nothing to attach to here).
package advisor

import (
	"context"
	"fmt"

	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/invopop/jsonschema"

	"github.com/abendrothj/doppel/internal/model"
)

// Request is what the advisor flow sends the model: the attack
// response body plus whatever evidence the Verdict Engine already
// collected, so the model judges the same material a human reviewer
// would.
type Request struct {
	ResponseBody string   `json:"response_body" jsonschema:"description=Raw attack response body,required"`
	Evidence     []string `json:"evidence" jsonschema:"description=Evidence strings the verdict engine already attached to this finding"`
}

// Response is the model's structured opinion.
type Response struct {
	ContainsPII bool     `json:"contains_pii" jsonschema:"description=Whether the body actually contains personally identifiable or sensitive data,required"`
	Kinds       []string `json:"kinds" jsonschema:"description=Kinds of sensitive data identified (e.g. email, ssn, phone)"`
	Rationale   string   `json:"rationale" jsonschema:"description=One-sentence explanation of the judgment"`
}

// Advisor wraps a genkit flow over a local Ollama model.
type Advisor struct {
	flow *genkitcore.Flow[*Request, *Response, struct{}]
}

// New builds an Advisor. model is the Ollama model tag (e.g.
// "llama3.1"); baseURL is Ollama's HTTP endpoint (spec §6 default
// http://127.0.0.1:11434).
func New(ctx context.Context, baseURL, model string) *Advisor {
	genkitApp := genkit.Init(ctx)
	client := &ollamaClient{baseURL: baseURL, model: model}

	a := &Advisor{}
	a.flow = genkit.DefineFlow(
		genkitApp, "piiAdvisorFlow",
		func(ctx context.Context, req *Request) (*Response, error) {
			return genkit.Run(ctx, "ollama-pii-check", func() (*Response, error) {
				return client.Judge(ctx, req)
			})
		},
	)
	return a
}

// schema is computed once; it is embedded in every prompt so the model
// knows the exact shape its reply must take.
var schema = jsonschema.Reflect(&Response{})

// Downgrade consults the advisor for one VULNERABLE finding and, if
// the model concludes the body doesn't actually carry sensitive data,
// downgrades it to UNCERTAIN. It never touches a finding that isn't
// already VULNERABLE, and it never upgrades — the model's opinion can
// only soften a verdict the rule table already reached (spec §4.5).
func (a *Advisor) Downgrade(ctx context.Context, f *model.Finding) error {
	if f.Verdict != model.VerdictVulnerable || f.Attack == nil {
		return nil
	}

	evidence := make([]string, 0, len(f.Evidence))
	for _, e := range f.Evidence {
		evidence = append(evidence, e.Kind+": "+e.Detail)
	}

	resp, err := a.flow.Run(ctx, &Request{
		ResponseBody: string(f.Attack.Body),
		Evidence:     evidence,
	})
	if err != nil {
		return fmt.Errorf("pii advisor: %w", err)
	}

	if !resp.ContainsPII {
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonAdvisorNegative
		f.Evidence = append(f.Evidence, model.Evidence{Kind: "advisor", Detail: resp.Rationale})
	}
	return nil
}
