// Package risk implements the Semantic Risk Engine (spec §4.2): a
// deterministic, explainable 0-100 BOLA score per parameter, grounded
// on the teacher's weighted, early-return heuristic shape in
// internal/utils/heuristics.go.
package risk

import (
	"github.com/abendrothj/doppel/internal/model"
)

// Score annotates a single Parameter with its RiskScore given its
// enclosing endpoint's method. The parameter itself is not mutated;
// the caller assigns the result back (keeps scoring a pure function,
// easy to unit test and to re-run against report evidence).
func Score(p model.Parameter, method model.Method) model.RiskScore {
	var contributions []model.Contribution
	total := 0

	add := func(heuristic string, delta int) {
		if delta == 0 {
			return
		}
		total += delta
		contributions = append(contributions, model.Contribution{Heuristic: heuristic, Delta: delta})
	}

	for _, hit := range NameSignal(p.Name) {
		add("name:"+hit.Token, hit.Delta)
	}

	add("location:"+string(p.Location), locationSignal(p.Location))
	add("method:"+string(method), methodSignal(method))
	add("type:"+string(p.Type), typeSignal(p))
	if p.Required {
		add("required", 5)
	}

	return model.RiskScore{Score: clamp(total), Contributions: contributions}
}

func locationSignal(l model.Location) int {
	switch l {
	case model.LocationPath:
		return 25
	case model.LocationBody:
		return 15
	case model.LocationQuery:
		return 10
	case model.LocationHeader:
		return 5
	default:
		return 0
	}
}

func methodSignal(m model.Method) int {
	switch m {
	case model.MethodGet, model.MethodDelete:
		return 10
	case model.MethodPut, model.MethodPatch:
		return 5
	default:
		return 0
	}
}

func typeSignal(p model.Parameter) int {
	switch p.Type {
	case model.TypeInteger:
		return 10
	case model.TypeString:
		if p.IsUUIDLike() {
			return 10
		}
		return 0
	case model.TypeArray, model.TypeObject:
		return -5
	default:
		return 0
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
