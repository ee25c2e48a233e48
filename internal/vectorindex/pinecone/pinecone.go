// Package pinecone is a minimal REST client for Pinecone serverless
// indexes: create-if-absent, batch upsert and top-k similarity query.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"feedrag/internal/domain"
)

const (
	DefaultControlURL = "https://api.pinecone.io"
	DefaultCloud      = "aws"
	DefaultRegion     = "us-east-1"
	DefaultTimeout    = 30 * time.Second
)

// Config configures the Pinecone client. The API key is read from the
// environment variable named by APIKeyEnv.
type Config struct {
	APIKeyEnv  string
	ControlURL string
	Cloud      string
	Region     string
	Timeout    time.Duration
}

// Client talks to the Pinecone control plane for index management and
// to each index's own data-plane host for upserts and queries.
type Client struct {
	controlURL string
	apiKey     string
	cloud      string
	region     string
	client     *http.Client

	mu    sync.Mutex
	hosts map[string]string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "PINECONE_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.ControlURL == "" {
		cfg.ControlURL = DefaultControlURL
	}
	if cfg.Cloud == "" {
		cfg.Cloud = DefaultCloud
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	t := cfg.Timeout
	if t == 0 {
		t = DefaultTimeout
	}
	return &Client{
		controlURL: cfg.ControlURL,
		apiKey:     key,
		cloud:      cfg.Cloud,
		region:     cfg.Region,
		client:     &http.Client{Timeout: t},
		hosts:      make(map[string]string),
	}, nil
}

type indexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
}

// EnsureIndex creates the named index if it does not exist. Existing
// indexes are left untouched regardless of their declared dimension.
func (c *Client) EnsureIndex(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	var list struct {
		Indexes []indexDescription `json:"indexes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.controlURL+"/indexes", nil, &list); err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	for _, idx := range list.Indexes {
		if idx.Name == name {
			c.setHost(name, idx.Host)
			return nil
		}
	}
	body := map[string]any{
		"name":      name,
		"dimension": dimension,
		"metric":    "cosine",
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  c.cloud,
				"region": c.region,
			},
		},
	}
	var created indexDescription
	if err := c.doJSON(ctx, http.MethodPost, c.controlURL+"/indexes", body, &created); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	c.setHost(name, created.Host)
	return nil
}

// Upsert writes the records into the named index, overwriting any
// records with matching ids.
func (c *Client) Upsert(ctx context.Context, index string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	host, err := c.host(ctx, index)
	if err != nil {
		return err
	}
	vectors := make([]map[string]any, len(records))
	for i, r := range records {
		vectors[i] = map[string]any{
			"id":       r.ID,
			"values":   r.Values,
			"metadata": r.Metadata,
		}
	}
	if err := c.doJSON(ctx, http.MethodPost, host+"/vectors/upsert", map[string]any{"vectors": vectors}, nil); err != nil {
		return fmt.Errorf("upsert into %s: %w", index, err)
	}
	return nil
}

// Query runs a top-k similarity search with metadata included. Matches
// come back ordered by score descending; SourceIndex is left for the
// caller to fill in.
func (c *Client) Query(ctx context.Context, index string, vector []float64, topK int) ([]domain.QueryMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	host, err := c.host(ctx, index)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	var out struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := c.doJSON(ctx, http.MethodPost, host+"/query", body, &out); err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}
	matches := make([]domain.QueryMatch, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, domain.QueryMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

func (c *Client) setHost(index, host string) {
	if host == "" {
		return
	}
	c.mu.Lock()
	c.hosts[index] = host
	c.mu.Unlock()
}

// host resolves and caches the data-plane endpoint for an index.
func (c *Client) host(ctx context.Context, index string) (string, error) {
	c.mu.Lock()
	cached, ok := c.hosts[index]
	c.mu.Unlock()
	if ok {
		return hostURL(cached), nil
	}
	var desc indexDescription
	if err := c.doJSON(ctx, http.MethodGet, c.controlURL+"/indexes/"+index, nil, &desc); err != nil {
		return "", fmt.Errorf("describe index %s: %w", index, err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("index %s has no host", index)
	}
	c.setHost(index, desc.Host)
	return hostURL(desc.Host), nil
}

// hostURL normalizes the data-plane host the control plane reports:
// Pinecone returns a bare hostname served over HTTPS.
func hostURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pinecone %s %s: %s: %s", method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
