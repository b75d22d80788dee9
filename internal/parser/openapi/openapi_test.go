package openapi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/specerr"
)

func writeSpec(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const basicSpec = `
openapi: "3.0.3"
servers:
  - url: "https://api.example.com/{version}"
    variables:
      version:
        default: v2
paths:
  /users/{id}:
    get:
      summary: Get a user
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "200": {}
    delete:
      responses:
        "204": {}
  /users:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                email:
                  type: string
                profile:
                  type: object
                  properties:
                    zip:
                      type: string
      responses:
        "201": {}
`

func TestParseBasicOpenAPI(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "spec.yaml", basicSpec)

	endpoints, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, endpoints, 3)

	// /users/{id} GET then DELETE, then /users POST — path-then-method order.
	assert.Equal(t, model.MethodGet, endpoints[0].Method)
	assert.Equal(t, "/users/{id}", endpoints[0].TemplateURL)
	require.Len(t, endpoints[0].Parameters, 1)
	assert.Equal(t, "id", endpoints[0].Parameters[0].Name)
	assert.Equal(t, model.LocationPath, endpoints[0].Parameters[0].Location)

	assert.Equal(t, model.MethodDelete, endpoints[1].Method)

	assert.Equal(t, model.MethodPost, endpoints[2].Method)
	names := map[string]bool{}
	for _, p := range endpoints[2].Parameters {
		names[p.Name] = true
	}
	assert.True(t, names["email"])
	assert.True(t, names["profile.zip"])
}

func TestResolveServerURLWithVariableDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "spec.yaml", basicSpec)
	assert.Equal(t, "https://api.example.com/v2", BaseURL(path))
}

const refSpec = `
openapi: "3.0.3"
paths:
  /widgets/{id}:
    get:
      parameters:
        - $ref: "./params.yaml#/components/parameters/WidgetId"
      responses:
        "200": {}
`

const refParamsFile = `
components:
  parameters:
    WidgetId:
      name: id
      in: path
      required: true
      schema:
        type: string
`

func TestRefResolutionAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "params.yaml", refParamsFile)
	path := writeSpec(t, dir, "spec.yaml", refSpec)

	endpoints, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	require.Len(t, endpoints[0].Parameters, 1)
	assert.Equal(t, "id", endpoints[0].Parameters[0].Name)
}

const escapingRefSpec = `
openapi: "3.0.3"
paths:
  /widgets/{id}:
    get:
      parameters:
        - $ref: "../../../../etc/passwd#/x"
      responses:
        "200": {}
`

func TestRefEscapeIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "spec.yaml", escapingRefSpec)

	_, err := Parse(path)
	require.Error(t, err)
	var secErr *specerr.SpecSecurityViolation
	assert.ErrorAs(t, err, &secErr)
}

const cyclicSpec = `
openapi: "3.0.3"
paths:
  /nodes:
    post:
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Node"
      responses:
        "201": {}
components:
  schemas:
    Node:
      type: object
      properties:
        name:
          type: string
        child:
          $ref: "#/components/schemas/Node"
`

func TestCyclicSchemaResolvesToUnknownLeaf(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "spec.yaml", cyclicSpec)

	endpoints, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)

	names := map[string]model.ParamType{}
	for _, p := range endpoints[0].Parameters {
		names[p.Name] = p.Type
	}
	assert.Equal(t, model.TypeString, names["name"])
	assert.Contains(t, names, "child.name")
}

func TestDetectRejectsNonOpenAPI(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "plain.yaml", "foo: bar\n")
	assert.False(t, Detect(path))
}
