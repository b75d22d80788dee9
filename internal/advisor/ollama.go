package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ollamaClient is a minimal client for Ollama's /api/generate endpoint.
// No genkit model plugin exists for Ollama in the examples' corpus, so
// this talks to it directly over HTTP instead, wrapped by the flow in
// advisor.go for tracing parity with the teacher's orchestration.
type ollamaClient struct {
	baseURL string
	model   string
	http    *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateReply struct {
	Response string `json:"response"`
}

// Judge asks the configured Ollama model to classify a response body
// and parses its reply into a Response.
func (c *ollamaClient) Judge(ctx context.Context, req *Request) (*Response, error) {
	httpClient := c.http
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: buildPrompt(req),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, raw)
	}

	var reply generateReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode ollama envelope: %w", err)
	}

	var out Response
	if err := json.Unmarshal([]byte(reply.Response), &out); err != nil {
		return nil, fmt.Errorf("decode model reply %q: %w", reply.Response, err)
	}
	return &out, nil
}

// buildPrompt embeds the response schema so the model knows the exact
// JSON shape it must answer with.
func buildPrompt(req *Request) string {
	schemaJSON, _ := json.Marshal(schema)
	return fmt.Sprintf(
		"You are reviewing an HTTP response body for personally identifiable or sensitive data.\n"+
			"Evidence already collected: %v\n\n"+
			"Response body:\n%s\n\n"+
			"Reply with JSON matching this schema exactly, nothing else:\n%s\n",
		req.Evidence, req.ResponseBody, schemaJSON,
	)
}
