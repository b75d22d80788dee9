package verdict

import "github.com/abendrothj/doppel/internal/model"

// IdenticalToBaseline reports whether an attack response is
// byte-identical to its baseline — the teacher's isIdenticalResponse
// check, folded here into a diagnostic fast path rather than its own
// verdict: an identical response only confirms what R4/R8 already
// concluded, it never overrides R1-R3 or R5-R7.
func IdenticalToBaseline(baseline, attack *model.ResponseRecord) bool {
	if baseline == nil || attack == nil {
		return false
	}
	if baseline.StatusCode != attack.StatusCode {
		return false
	}
	return string(baseline.Body) == string(attack.Body)
}
