package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/model"
)

func targetable(p model.Parameter, score int) model.Parameter {
	p.Risk = model.RiskScore{Score: score}
	return p
}

func TestPlanBaselinePlusSwap(t *testing.T) {
	e := &model.Endpoint{
		ID:          "ep1",
		Method:      model.MethodGet,
		TemplateURL: "/users/{id}",
		Parameters: []model.Parameter{
			targetable(model.Parameter{Name: "id", Location: model.LocationPath, Type: model.TypeInteger, Required: true}, 90),
		},
	}

	cases := Plan(e, "https://api.example.com", Options{AttackerToken: "atk", VictimID: "999", MutationalFuzzing: false})

	require.Len(t, cases, 2)
	assert.Equal(t, model.ClassBaseline, cases[0].Classification)
	assert.Contains(t, cases[0].URL, "/users/1")

	assert.Equal(t, model.ClassSwap, cases[1].Classification)
	assert.Contains(t, cases[1].URL, "/users/999")
	assert.Equal(t, "999", cases[1].InjectedValue)
}

func TestPlanNonNumericVictimIDSkipsIntegerSwap(t *testing.T) {
	e := &model.Endpoint{
		ID:          "ep1",
		Method:      model.MethodGet,
		TemplateURL: "/users/{id}",
		Parameters: []model.Parameter{
			targetable(model.Parameter{Name: "id", Location: model.LocationPath, Type: model.TypeInteger, Required: true}, 90),
		},
	}

	cases := Plan(e, "https://api.example.com", Options{AttackerToken: "atk", VictimID: "not-a-number", MutationalFuzzing: true})
	require.Len(t, cases, 2)
	assert.True(t, cases[1].Skipped)
	assert.NotEmpty(t, cases[1].SkippedReason)
}

func TestPlanMutationSetEmittedWhenEnabled(t *testing.T) {
	e := &model.Endpoint{
		ID:          "ep1",
		Method:      model.MethodGet,
		TemplateURL: "/users/{id}",
		Parameters: []model.Parameter{
			targetable(model.Parameter{Name: "id", Location: model.LocationPath, Type: model.TypeInteger, Required: true}, 90),
		},
	}

	cases := Plan(e, "https://api.example.com", Options{AttackerToken: "atk", VictimID: "42", MutationalFuzzing: true})

	// baseline + swap + 9 fixed payloads + 2 adjacent = 13
	require.Len(t, cases, 13)

	kinds := map[model.MutationKind]bool{}
	for _, c := range cases {
		if c.Classification == model.ClassMutation {
			kinds[c.MutationKind] = true
		}
	}
	assert.True(t, kinds[model.MutationSQLiOr])
	assert.True(t, kinds[model.MutationAdjacentPlus])
	assert.True(t, kinds[model.MutationAdjacentMinus])
}

func TestPlanHeadOptionsNeverAttacked(t *testing.T) {
	e := &model.Endpoint{
		ID:          "ep1",
		Method:      model.MethodHead,
		TemplateURL: "/users/{id}",
		Parameters: []model.Parameter{
			targetable(model.Parameter{Name: "id", Location: model.LocationPath, Type: model.TypeInteger, Required: true}, 90),
		},
	}

	cases := Plan(e, "https://api.example.com", Options{AttackerToken: "atk", VictimID: "42", MutationalFuzzing: true})
	require.Len(t, cases, 1)
	assert.Equal(t, model.ClassBaseline, cases[0].Classification)
}

func TestPlanColonStylePlaceholder(t *testing.T) {
	e := &model.Endpoint{
		ID:          "ep1",
		Method:      model.MethodGet,
		TemplateURL: "/users/:id",
		Parameters: []model.Parameter{
			targetable(model.Parameter{Name: "id", Location: model.LocationPath, Type: model.TypeInteger, Required: true}, 90),
		},
	}

	cases := Plan(e, "https://api.example.com", Options{AttackerToken: "atk", VictimID: "7", MutationalFuzzing: false})
	assert.Contains(t, cases[1].URL, "/users/7")
}
