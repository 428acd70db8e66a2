package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

const duckDuckGoEndpoint = "https://api.duckduckgo.com/"

// WebSearch returns the web-search capability backed by the DuckDuckGo
// Instant Answer API. Pass a nil client to use a default with a sane
// timeout; tests inject their own transport.
func WebSearch(client *http.Client) capability.Executor {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &webSearchExecutor{client: client, endpoint: duckDuckGoEndpoint}
}

type webSearchExecutor struct {
	client   *http.Client
	endpoint string
}

func (w *webSearchExecutor) Metadata() capability.Metadata {
	return capability.Metadata{
		Name:        "web_search",
		Description: "Search the web for information",
		Category:    "information",
		Parameters: []capability.Parameter{
			{Name: "query", Type: "string", Description: "The search query", Required: true},
			{Name: "num_results", Type: "integer", Description: "Number of results to return (default: 5)", Required: false},
		},
	}
}

// instantAnswer is the subset of the DuckDuckGo response we consume.
type instantAnswer struct {
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (w *webSearchExecutor) Run(ctx context.Context, args map[string]any) capability.Result {
	query, ok := stringArg(args, "query")
	if !ok || query == "" {
		return capability.Fail("query must be a non-empty string")
	}
	limit := 5
	if n, ok := intArg(args, "num_results"); ok && n > 0 {
		limit = n
	}

	reqURL := fmt.Sprintf("%s?q=%s&format=json&no_html=1", w.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return capability.Fail("build request: %v", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return capability.Fail("search request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return capability.Fail("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return capability.Fail("read response: %v", err)
	}

	var answer instantAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return capability.Fail("decode response: %v", err)
	}

	results := make([]map[string]any, 0, limit)
	if answer.Abstract != "" {
		results = append(results, map[string]any{
			"title":   answer.Heading,
			"snippet": answer.Abstract,
			"url":     answer.AbstractURL,
		})
	}
	for _, topic := range answer.RelatedTopics {
		if len(results) >= limit {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, map[string]any{
			"title":   topic.Text,
			"snippet": topic.Text,
			"url":     topic.FirstURL,
		})
	}

	return capability.Ok(map[string]any{
		"query":         query,
		"results":       results,
		"total_results": len(results),
	})
}
