package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"festival-scraper/utils"
)

// CMSClient talks to the content-management REST API that stores published
// festivals.
type CMSClient struct {
	baseURL    string
	collection string
	token      string
	httpClient *http.Client
	logger     *utils.Logger
}

// NewCMSClient creates a client for the given collection endpoint.
func NewCMSClient(baseURL, collection, token string, logger *utils.Logger) *CMSClient {
	return &CMSClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		collection: collection,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// CMSEntry is a stored festival as returned by the list endpoint.
type CMSEntry struct {
	ID         int `json:"id"`
	Attributes struct {
		Title     string `json:"title"`
		Slug      string `json:"slug"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"attributes"`
}

// CMSPage is one page of the list endpoint.
type CMSPage struct {
	Data []CMSEntry `json:"data"`
	Meta struct {
		Pagination struct {
			Page      int `json:"page"`
			PageSize  int `json:"pageSize"`
			PageCount int `json:"pageCount"`
			Total     int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Upload creates one festival entry.
func (c *CMSClient) Upload(ctx context.Context, payload UploadPayload) error {
	body, err := json.Marshal(map[string]any{"data": payload})
	if err != nil {
		return fmt.Errorf("cms: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, c.collection)
	c.logger.Debug("[cms] POST %s slug=%s", endpoint, payload.Slug)

	_, err = c.do(ctx, http.MethodPost, endpoint, body)
	return err
}

// List returns one page of stored festivals (1-based page numbers).
func (c *CMSClient) List(ctx context.Context, page, pageSize int) (*CMSPage, error) {
	q := url.Values{}
	q.Set("pagination[page]", fmt.Sprint(page))
	q.Set("pagination[pageSize]", fmt.Sprint(pageSize))
	q.Set("sort", "id:asc")
	endpoint := fmt.Sprintf("%s/api/%s?%s", c.baseURL, c.collection, q.Encode())

	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var out CMSPage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("cms: decode list page %d: %w", page, err)
	}
	return &out, nil
}

// Delete removes one festival entry.
func (c *CMSClient) Delete(ctx context.Context, id int) error {
	endpoint := fmt.Sprintf("%s/api/%s/%d", c.baseURL, c.collection, id)
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	return err
}

func (c *CMSClient) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("cms: create %s request for %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cms: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cms: %s %s: status %d: %s", method, endpoint, resp.StatusCode, truncate(string(raw), 200))
	}
	return raw, nil
}
