package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/config"
	"github.com/abendrothj/doppel/internal/model"
)

const vulnerableSpec = `
openapi: "3.0.0"
info:
  title: test
  version: "1.0"
paths:
  /users/{id}:
    get:
      operationId: getUser
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: ok
`

func writeSpec(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunBOLAHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"999","email":"victim@example.com"}`))
	}))
	defer srv.Close()

	specPath := writeSpec(t, vulnerableSpec)

	opts := config.DefaultOptions()
	opts.Input = specPath
	opts.BaseURL = srv.URL
	opts.AttackerToken = "attacker-token"
	opts.VictimID = "999"
	opts.MutationalFuzzing = false
	opts.Timeout = 2 * time.Second

	s := New(nil)
	findings, err := s.Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotEmpty(t, findings)

	for _, f := range findings {
		assert.NotEmpty(t, f.ID)
		assert.NotEmpty(t, f.Verdict)
	}

	var sawVulnerable bool
	for _, f := range findings {
		if f.Verdict == model.VerdictVulnerable {
			sawVulnerable = true
		}
	}
	assert.True(t, sawVulnerable, "expected at least one vulnerable finding when the server returns victim data unconditionally")
}

func TestRunAuthorizedServerYieldsSecure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	specPath := writeSpec(t, vulnerableSpec)

	opts := config.DefaultOptions()
	opts.Input = specPath
	opts.BaseURL = srv.URL
	opts.AttackerToken = "attacker-token"
	opts.VictimID = "999"
	opts.MutationalFuzzing = false

	s := New(nil)
	findings, err := s.Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotEmpty(t, findings)

	for _, f := range findings {
		assert.Equal(t, model.ReasonBaselineFailed, f.Reason)
		assert.Equal(t, model.VerdictUncertain, f.Verdict)
	}
}

func TestRunRejectsRefEscape(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(filepath.Dir(dir), "outside.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("Leaked: {type: string}\n"), 0o644))
	defer os.Remove(outside)

	spec := `
openapi: "3.0.0"
info: {title: t, version: "1.0"}
paths:
  /leak:
    get:
      operationId: leak
      requestBody:
        content:
          application/json:
            schema:
              $ref: "../outside.yaml#/Leaked"
      responses:
        "200": {description: ok}
`
	specPath := writeSpec(t, spec)

	opts := config.DefaultOptions()
	opts.Input = specPath
	opts.BaseURL = "http://unused.invalid"

	s := New(nil)
	_, err := s.Run(context.Background(), opts)
	assert.Error(t, err)
}

func TestRunFindingsAreSortedByEndpointThenIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	specPath := writeSpec(t, vulnerableSpec)

	opts := config.DefaultOptions()
	opts.Input = specPath
	opts.BaseURL = srv.URL
	opts.AttackerToken = "attacker-token"
	opts.VictimID = "999"
	opts.MutationalFuzzing = true

	s := New(nil)
	require.NotEmpty(t, s.ScanID)
	findings, err := s.Run(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, sort.IsSorted(byEndpointThenIndex(findings)))
}

type byEndpointThenIndex []model.Finding

func (b byEndpointThenIndex) Len() int      { return len(b) }
func (b byEndpointThenIndex) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b byEndpointThenIndex) Less(i, j int) bool {
	if b[i].EndpointID != b[j].EndpointID {
		return b[i].EndpointID < b[j].EndpointID
	}
	return b[i].TestCase.Index < b[j].TestCase.Index
}
