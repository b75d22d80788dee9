package bruno

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/model"
)

const getUserBru = `meta {
  name: Get user
  type: http
}

get {
  url: {{baseUrl}}/users/:id
}

params:path {
  id: 42
}

headers {
  Authorization: Bearer {{token}}
}
`

const createOrderBru = `meta {
  name: Create order
  type: http
}

post {
  url: {{baseUrl}}/orders
}

body:json {
  {
    "user_id": "u1",
    "total": 9.5
  }
}
`

func TestParseFileMethodBlock(t *testing.T) {
	ep, ok, err := ParseFile("get-user.bru", []byte(getUserBru))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, model.MethodGet, ep.Method)
	assert.Equal(t, "/users/:id", ep.TemplateURL)

	var hasID, hasAuth bool
	for _, p := range ep.Parameters {
		if p.Name == "id" && p.Location == model.LocationPath {
			hasID = true
		}
		if p.Name == "Authorization" && p.Location == model.LocationHeader {
			hasAuth = true
		}
	}
	assert.True(t, hasID)
	assert.True(t, hasAuth)
}

func TestParseFileJSONBody(t *testing.T) {
	ep, ok, err := ParseFile("create-order.bru", []byte(createOrderBru))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.MethodPost, ep.Method)

	var hasUserID bool
	for _, p := range ep.Parameters {
		if p.Name == "user_id" && p.Location == model.LocationBody {
			hasUserID = true
		}
	}
	assert.True(t, hasUserID)
}

func TestParseFileSkipsNonRequestBlocks(t *testing.T) {
	_, ok, err := ParseFile("folder.bru", []byte("meta {\n  name: folder\n}\n"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseDirLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-create-order.bru"), []byte(createOrderBru), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-get-user.bru"), []byte(getUserBru), 0o644))

	endpoints, err := ParseDir(dir)
	require.NoError(t, err)
	require.Len(t, endpoints, 2)
	assert.Equal(t, model.MethodGet, endpoints[0].Method)
	assert.Equal(t, model.MethodPost, endpoints[1].Method)
}
