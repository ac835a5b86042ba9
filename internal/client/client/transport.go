package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/coachportal/internal/common"
)

// TokenSource hands out the bearer credential. force=false may return a
// cached token; force=true must obtain a fresh one.
type TokenSource interface {
	Token(ctx context.Context, force bool) (string, error)
}

// authTransport attaches the bearer token and, when the API rejects it as
// invalid, refreshes it and replays the request exactly once.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func withBearer(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Del(common.AuthorizationHeaderName)
	r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return r
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := t.tokens.Token(ctx, false)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	resp, err := t.base.RoundTrip(withBearer(req, token))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if !isInvalidToken(body) {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	token, err = t.tokens.Token(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	retry := withBearer(req, token)
	if req.GetBody != nil {
		b, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = b
	}
	return t.base.RoundTrip(retry)
}

// isInvalidToken reports whether a 401 body names an invalid token as the
// cause, either by code or by message.
func isInvalidToken(body []byte) bool {
	var e struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	if e.Code == common.InvalidTokenCode || e.Error == common.InvalidTokenCode {
		return true
	}
	return e.Error == common.ErrInvalidToken.Error() || e.Message == common.ErrInvalidToken.Error()
}
