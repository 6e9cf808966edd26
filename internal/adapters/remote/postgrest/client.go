package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody = 512

var (
	ErrTableRequired = errors.New("postgrest: table name is required")
	ErrStatus        = errors.New("postgrest: unexpected status")
)

// Client は PostgREST 互換 API からテーブルの全行を取得します。
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
}

// NewClient は Client を生成します。pageSize が 0 の場合は 1 リクエストで全行を取得します。
func NewClient(baseURL, apiKey string, pageSize int, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
	}
}

// FetchAll は table の全行を JSON のまま返します。
func (c *Client) FetchAll(ctx context.Context, table string) ([]json.RawMessage, error) {
	if strings.TrimSpace(table) == "" {
		return nil, ErrTableRequired
	}
	if c.pageSize <= 0 {
		return c.fetch(ctx, table, 0, 0)
	}

	var all []json.RawMessage
	for offset := 0; ; offset += c.pageSize {
		page, err := c.fetch(ctx, table, c.pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < c.pageSize {
			return all, nil
		}
	}
}

func (c *Client) fetch(ctx context.Context, table string, limit, offset int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("select", "*")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))
	}
	endpoint := c.baseURL + "/rest/v1/" + url.PathEscape(table) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("postgrest: build request for %s: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postgrest: get %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrStatus, table, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("postgrest: decode %s: %w", table, err)
	}
	return rows, nil
}
