// Package notion is a minimal Notion REST client covering the database query
// and page create/update calls the chart sink needs.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the public Notion API root.
const DefaultBaseURL = "https://api.notion.com/v1"

// DefaultVersion is the Notion-Version header sent with every request.
const DefaultVersion = "2022-06-28"

// Config controls client construction.
type Config struct {
	Token   string
	BaseURL string
	Version string
	Timeout time.Duration
}

// Client wraps a resty client preconfigured for the Notion API.
type Client struct {
	http *resty.Client
}

// APIError is the error object Notion returns on non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Object     string `json:"object"`
	Status     int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("notion api: status %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// NewClient builds a Client. The token is sent as a bearer credential.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("notion token is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetAuthToken(cfg.Token)
	client.SetHeader("Notion-Version", version)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetTimeout(timeout)

	return &Client{http: client}, nil
}

// QueryByURL returns the pages of databaseID whose url property equals value.
func (c *Client) QueryByURL(ctx context.Context, databaseID, property, value string) ([]Page, error) {
	body := QueryRequest{
		Filter: &Filter{
			Property: property,
			URL:      &URLFilter{Equals: value},
		},
	}
	var out QueryResponse
	if err := c.do(ctx, http.MethodPost, "/databases/{id}/query", databaseID, body, &out); err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}
	return out.Results, nil
}

// CreatePage adds a page with props to databaseID.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props Properties) (Page, error) {
	body := CreatePageRequest{
		Parent:     Parent{DatabaseID: databaseID},
		Properties: props,
	}
	var out Page
	if err := c.do(ctx, http.MethodPost, "/pages", "", body, &out); err != nil {
		return Page{}, fmt.Errorf("create page: %w", err)
	}
	return out, nil
}

// UpdatePage overwrites props on an existing page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props Properties) (Page, error) {
	body := UpdatePageRequest{Properties: props}
	var out Page
	if err := c.do(ctx, http.MethodPatch, "/pages/{id}", pageID, body, &out); err != nil {
		return Page{}, fmt.Errorf("update page %s: %w", pageID, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, id string, body, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		SetError(&APIError{})
	if id != "" {
		req.SetPathParam("id", id)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if res.IsError() {
		apiErr, ok := res.Error().(*APIError)
		if !ok || apiErr == nil {
			apiErr = &APIError{}
		}
		apiErr.StatusCode = res.StatusCode()
		return apiErr
	}
	return nil
}
