// Package verdict is the Verdict & Analysis Engine (spec §4.5): an
// eight-rule, first-match-wins table turning one attack response (plus
// its endpoint's baseline) into a VULNERABLE/SECURE/UNCERTAIN Finding.
// Grounded on the teacher's QuickHeuristicAnalysis in
// internal/utils/heuristics.go — the same early-return rule-chain shape,
// rebuilt around internal/fingerprint's structural comparisons instead
// of string similarity.
package verdict

import (
	"regexp"

	"github.com/abendrothj/doppel/internal/executor"
	"github.com/abendrothj/doppel/internal/fingerprint"
	"github.com/abendrothj/doppel/internal/model"
)

// sensitiveLeafKeys is the allowlist rule R5/R6 check a matched leaf or
// object key against (spec §4.5).
var sensitiveLeafKeys = map[string]bool{
	"id":      true,
	"email":   true,
	"ssn":     true,
	"account": true,
	"card":    true,
	"phone":   true,
	"balance": true,
	"token":   true,
}

// softFailPattern is rule R7's soft-fail phrase set.
var softFailPattern = regexp.MustCompile(`(?i)error|denied|unauthorized|forbidden|not allowed`)

// Options toggles the optional rules (spec §6's --no-soft-fail-analysis).
type Options struct {
	SoftFailAnalysis bool
}

// DefaultOptions enables every optional rule, matching spec §6's
// defaults.
func DefaultOptions() Options {
	return Options{SoftFailAnalysis: true}
}

// Judge evaluates one Outcome against the R1-R8 rule table and returns
// its Finding. A nil Attack (baseline failure, planner skip, or
// cancellation) always yields UNCERTAIN without consulting any rule.
func Judge(o executor.Outcome, opts Options) model.Finding {
	f := model.Finding{
		TestCase: o.TestCase,
		Baseline: o.Baseline,
		Attack:   o.Attack,
	}
	if o.TestCase.EndpointID != "" {
		f.EndpointID = o.TestCase.EndpointID
	}

	switch {
	case o.TestCase.Skipped:
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonSkipped
		if o.TestCase.SkippedReason != "" {
			f.Reason = model.ReasonSkipped + ": " + o.TestCase.SkippedReason
		}
	case o.Baseline == nil || !o.Baseline.IsSuccess():
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonBaselineFailed
	case o.Attack == nil:
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonBaselineFailed
	case o.Attack.Err != nil:
		f.Verdict = model.VerdictError
		f.Reason = model.ReasonNetworkError
	default:
		applyRules(&f, o, opts)
		if o.Attack != nil {
			ScanForSecrets(&f, o.Attack.Body)
		}
	}

	f.Severity = model.Severity(o.TestCase.Parameter.Risk.Score, f.Verdict)
	return f
}

// applyRules runs R1-R8 in order, stopping at the first match. Every
// branch after the status-code rules (R1-R4) assumes a 2xx response
// with a non-empty body.
func applyRules(f *model.Finding, o executor.Outcome, opts Options) {
	attack := o.Attack
	baseline := o.Baseline

	switch {
	case attack.StatusCode == 401 || attack.StatusCode == 403:
		// R1
		f.Verdict = model.VerdictSecure
		f.Reason = "authorization-enforced"
		return
	case attack.StatusCode == 404:
		// R2
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonNotFound
		return
	case attack.StatusCode >= 500:
		// R3
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonServerError
		return
	case !attack.IsSuccess():
		// any other non-2xx the table doesn't name explicitly
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonInconclusive
		return
	case attack.Empty():
		// R4
		f.Verdict = model.VerdictUncertain
		f.Reason = model.ReasonEmptyOK
		return
	}

	victimID := o.TestCase.InjectedValue

	// R5: structural match against baseline plus either the victim id
	// or a sensitive-leaf-allowlist field present as a leaf.
	if baseline != nil && fingerprint.StructurallyEqual(attack.Fingerprint, baseline.Fingerprint) {
		if fingerprint.ContainsLeafValue(attack.Body, victimID) || hasSensitiveLeafKey(attack.Fingerprint) {
			f.Verdict = model.VerdictVulnerable
			f.Reason = "structural-match-sensitive-leaf"
			f.Evidence = append(f.Evidence, model.Evidence{Kind: "structural-match", Detail: "attack response shape matches baseline"})
			return
		}
	}

	// R6: victim id reflected alongside a sensitive key in the same
	// object — the reflection-vs-leakage distinction.
	if victimID != "" && fingerprint.SensitiveKeyNearValue(attack.Body, victimID, sensitiveLeafKeys) {
		f.Verdict = model.VerdictVulnerable
		f.Reason = "victim-id-with-sensitive-key"
		f.Evidence = append(f.Evidence, model.Evidence{Kind: "sensitive-key-match", Detail: "victim id present alongside a sensitive field"})
		return
	}

	// R7: soft-fail phrase in an otherwise-2xx body — many APIs answer
	// authorization failures with HTTP 200 and an error payload.
	if opts.SoftFailAnalysis && softFailPattern.Match(attack.Body) {
		f.Verdict = model.VerdictSecure
		f.Reason = model.ReasonSoftFail
		return
	}

	// R8: 2xx, non-empty, none of the above — inconclusive rather than
	// a false negative or false positive.
	f.Verdict = model.VerdictUncertain
	f.Reason = model.ReasonInconclusive
	if IdenticalToBaseline(baseline, attack) {
		f.Evidence = append(f.Evidence, model.Evidence{Kind: "identical-response", Detail: "attack response identical to baseline"})
	}
}

// hasSensitiveLeafKey reports whether any leaf path ends in a
// sensitive-allowlist field name (e.g. "user.ssn" matches "ssn").
func hasSensitiveLeafKey(paths []string) bool {
	for _, p := range paths {
		name := p
		for i := len(p) - 1; i >= 0; i-- {
			if p[i] == '.' {
				name = p[i+1:]
				break
			}
		}
		if idx := indexLastBracket(name); idx >= 0 {
			name = name[:idx]
		}
		if sensitiveLeafKeys[name] {
			return true
		}
	}
	return false
}

// indexLastBracket returns the index of a trailing "[n]" array suffix
// on a leaf path segment, or -1 if there isn't one.
func indexLastBracket(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			return i
		}
	}
	return -1
}
