// Package mindsdb talks to the SQL-over-HTTP API of a MindsDB server.
package mindsdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hamed0406/mindsprobe/internal/domain"
)

// ErrRequestFailed covers transport errors and replies whose body is not JSON.
var ErrRequestFailed = errors.New("request failed")

type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewClient builds a client for baseURL. A zero timeout means requests may
// block until ctx is done.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Do performs one round trip. Any JSON body is returned as data regardless
// of the HTTP status; a body that is not JSON fails with ErrRequestFailed.
func (c *Client) Do(ctx context.Context, r domain.Request) (domain.Response, error) {
	var body io.Reader
	if r.Method != http.MethodGet {
		buf, err := encodeQuery(r.Query)
		if err != nil {
			return domain.Response{}, fmt.Errorf("%w: encode query: %v", ErrRequestFailed, err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.BaseURL+r.Path, body)
	if err != nil {
		return domain.Response{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return domain.Response{}, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Response{}, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}
	if !gjson.ValidBytes(raw) {
		return domain.Response{}, fmt.Errorf("%w: %s %s: %s: body is not JSON", ErrRequestFailed, r.Method, r.Path, resp.Status)
	}
	return domain.Response{StatusCode: resp.StatusCode, Body: gjson.ParseBytes(raw)}, nil
}

// Query submits one statement to /api/sql/query.
func (c *Client) Query(ctx context.Context, sql string) (domain.Response, error) {
	return c.Do(ctx, domain.Query(sql))
}

// Status fetches /api/status.
func (c *Client) Status(ctx context.Context) (domain.Status, error) {
	res, err := c.Do(ctx, domain.StatusCheck())
	if err != nil {
		return domain.Status{}, err
	}
	return domain.StatusFrom(res), nil
}

func encodeQuery(sql string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(domain.QueryRequest{Query: sql}); err != nil {
		return nil, err
	}
	return &buf, nil
}
