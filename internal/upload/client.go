package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrPresignRejected = errors.New("presign request rejected")

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Presigner issues a Ticket for a request that already passed the Policy.
type Presigner interface {
	Presign(ctx context.Context, req Request) (*Ticket, error)
}

// Client calls an external presign endpoint that owns the bucket.
type Client struct {
	endpoint string
	http     Doer
}

func NewClient(endpoint string, doer Doer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{endpoint: strings.TrimSpace(endpoint), http: doer}
}

func (c *Client) Presign(ctx context.Context, req Request) (*Ticket, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal presign request failed: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build presign request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("presign request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read presign response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			msg = failure.Error
		}
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrPresignRejected, resp.StatusCode, msg)
	}

	var ticket Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, fmt.Errorf("parse presign response failed: %w", err)
	}
	if ticket.UploadURL == "" || ticket.FileKey == "" {
		return nil, fmt.Errorf("%w: response has no upload url", ErrPresignRejected)
	}
	return &ticket, nil
}
