package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/model"
)

func TestScorePathID(t *testing.T) {
	p := model.Parameter{
		Name:     "id",
		Location: model.LocationPath,
		Required: true,
		Type:     model.TypeInteger,
	}
	score := Score(p, model.MethodGet)
	// name:id +40, location:path +25, method:GET +10, type:integer +10, required +5 = 90
	assert.Equal(t, 90, score.Score)
	require.NotEmpty(t, score.Contributions)
}

func TestScorePaginationSuppressed(t *testing.T) {
	page := Score(model.Parameter{Name: "page", Location: model.LocationQuery, Type: model.TypeInteger}, model.MethodGet)
	limit := Score(model.Parameter{Name: "limit", Location: model.LocationQuery, Type: model.TypeInteger}, model.MethodGet)

	assert.Less(t, page.Score, model.TargetableThreshold)
	assert.Less(t, limit.Score, model.TargetableThreshold)
	assert.False(t, page.Targetable())
	assert.False(t, limit.Targetable())
}

func TestScoreClampedToRange(t *testing.T) {
	p := model.Parameter{Name: "user_account_customer_id", Location: model.LocationPath, Required: true, Type: model.TypeInteger}
	score := Score(p, model.MethodDelete)
	assert.LessOrEqual(t, score.Score, 100)
	assert.GreaterOrEqual(t, score.Score, 0)
}

func TestScoreOrderByNotTargetable(t *testing.T) {
	for _, name := range []string{"order_by", "orderBy", "orderby", "per_page", "perPage", "perpage"} {
		score := Score(model.Parameter{Name: name, Location: model.LocationQuery, Type: model.TypeString}, model.MethodGet)
		assert.Falsef(t, score.Targetable(), "%s should not be targetable, got score %d", name, score.Score)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	p := model.Parameter{Name: "sort_order_by_filter", Location: model.LocationHeader, Type: model.TypeArray}
	score := Score(p, model.MethodPost)
	assert.GreaterOrEqual(t, score.Score, 0)
}

func TestTokenizeVariants(t *testing.T) {
	assert.Equal(t, []string{"user", "id"}, Tokenize("userId"))
	assert.Equal(t, []string{"user", "id"}, Tokenize("user_id"))
	assert.Equal(t, []string{"user", "id"}, Tokenize("user-id"))
	assert.Equal(t, []string{"user", "address", "zip"}, Tokenize("user.address.zip"))
	assert.Equal(t, []string{"items", "0", "id"}, Tokenize("items[0].id"))
}

func TestResourceMapperFullCRUD(t *testing.T) {
	rm := NewResourceMapper()
	rm.Add(&model.Endpoint{Method: model.MethodGet, TemplateURL: "/users/{id}"})
	rm.Add(&model.Endpoint{Method: model.MethodPost, TemplateURL: "/users"})
	rm.Add(&model.Endpoint{Method: model.MethodDelete, TemplateURL: "/users/{id}"})
	rm.Add(&model.Endpoint{Method: model.MethodPatch, TemplateURL: "/users/{id}"})

	mappings := rm.Mappings()
	require.Len(t, mappings, 1)
	assert.Equal(t, "/users", mappings[0].ResourcePath)
	assert.True(t, mappings[0].HasFullCRUD())
}
