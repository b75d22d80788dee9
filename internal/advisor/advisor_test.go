package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/model"
)

func fakeOllama(t *testing.T, containsPII bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		inner, _ := json.Marshal(Response{ContainsPII: containsPII, Kinds: nil, Rationale: "test"})
		resp, _ := json.Marshal(generateReply{Response: string(inner)})
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}))
}

func TestOllamaClientJudgeParsesNestedJSON(t *testing.T) {
	srv := fakeOllama(t, true)
	defer srv.Close()

	c := &ollamaClient{baseURL: srv.URL, model: "llama3.1"}
	out, err := c.Judge(context.Background(), &Request{ResponseBody: `{"email":"a@b.com"}`})
	require.NoError(t, err)
	assert.True(t, out.ContainsPII)
}

func TestDowngradeSkipsNonVulnerableFindings(t *testing.T) {
	srv := fakeOllama(t, false)
	defer srv.Close()

	a := New(context.Background(), srv.URL, "llama3.1")

	f := &model.Finding{Verdict: model.VerdictSecure, Attack: &model.ResponseRecord{Body: []byte(`{}`)}}
	require.NoError(t, a.Downgrade(context.Background(), f))
	assert.Equal(t, model.VerdictSecure, f.Verdict)
}

func TestDowngradeVulnerableWhenAdvisorDisagrees(t *testing.T) {
	srv := fakeOllama(t, false)
	defer srv.Close()

	a := New(context.Background(), srv.URL, "llama3.1")

	f := &model.Finding{Verdict: model.VerdictVulnerable, Attack: &model.ResponseRecord{Body: []byte(`{"count":5}`)}}
	require.NoError(t, a.Downgrade(context.Background(), f))
	assert.Equal(t, model.VerdictUncertain, f.Verdict)
	assert.Equal(t, model.ReasonAdvisorNegative, f.Reason)
}

func TestDowngradeLeavesVulnerableWhenAdvisorAgrees(t *testing.T) {
	srv := fakeOllama(t, true)
	defer srv.Close()

	a := New(context.Background(), srv.URL, "llama3.1")

	f := &model.Finding{Verdict: model.VerdictVulnerable, Attack: &model.ResponseRecord{Body: []byte(`{"ssn":"123-45-6789"}`)}}
	require.NoError(t, a.Downgrade(context.Background(), f))
	assert.Equal(t, model.VerdictVulnerable, f.Verdict)
}

func TestBuildPromptEmbedsSchemaAndEvidence(t *testing.T) {
	p := buildPrompt(&Request{ResponseBody: `{"ssn":"1"}`, Evidence: []string{"sensitive-key-match: victim id present"}})
	assert.Contains(t, p, "ssn")
	assert.Contains(t, p, "sensitive-key-match")
	assert.Contains(t, p, "contains_pii")
}
