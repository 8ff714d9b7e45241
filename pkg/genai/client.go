package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the external text-generation service. The engine only
// depends on this prompt-in, text-out contract.
type Client struct {
	url string
	c   *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, c: &http.Client{Timeout: timeout}}
}

type generateReq struct {
	Prompt string `json:"prompt"`
}

type generateResp struct {
	Text string `json:"text"`
}

// Generate returns the model's completion for the prompt.
func (g *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.url == "" {
		return "", fmt.Errorf("text generation is not configured")
	}

	b, _ := json.Marshal(generateReq{Prompt: prompt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/generate", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate %s: %s", resp.Status, string(body))
	}

	var out generateResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("generate decode: %w", err)
	}
	return out.Text, nil
}
