package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/common"
)

const maxResponseBody = 1 << 20

type HTTPClient struct {
	baseURL string
	http    *http.Client
	// health calls go out without credentials
	health *http.Client
}

// NewHTTPClient returns a Client talking JSON to baseURL. Every request
// carries a bearer token from tokens.
func NewHTTPClient(baseURL string, tokens TokenSource, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: &authTransport{base: http.DefaultTransport, tokens: tokens},
		},
		health: &http.Client{Timeout: timeout},
	}
}

type userEnvelope struct {
	User    *models.UserRecord `json:"user"`
	Error   string             `json:"error"`
	Message string             `json:"message"`
}

type usersEnvelope struct {
	Users []*models.UserRecord `json:"users"`
}

func (c *HTTPClient) Me(ctx context.Context) (*models.UserRecord, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &env); err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, ErrNotFound
	}
	return env.User, nil
}

func (c *HTTPClient) FindByExternalID(ctx context.Context, externalID string) (*models.UserRecord, error) {
	q := url.Values{"external_id": {externalID}, "limit": {"1"}}

	var env usersEnvelope
	err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &env)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(env.Users) == 0 {
		return nil, nil
	}
	return env.Users[0], nil
}

func (c *HTTPClient) Upsert(ctx context.Context, req UpsertRequest) (*models.UserRecord, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/users/upsert", req, &env); err != nil {
		return nil, err
	}
	if env.User == nil {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, &APIError{Status: http.StatusOK, Message: msg}
	}
	return env.User, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.health.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) mapError(err error) error {
	switch {
	case errors.Is(err, common.ErrNoCredentials):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func errorMessage(data []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
