package client

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/tidwall/gjson"
)

var errNoReplay = errors.New("request body cannot be replayed")

// maxErrorBody bounds how much of an error response is buffered.
const maxErrorBody = 64 << 10

// authTransport injects the bearer token and, when the server reports the
// access token as expired, refreshes it once and replays the request.
type authTransport struct {
	c    *HTTPClient
	next http.RoundTripper
}

var unauthenticatedPaths = map[string]struct{}{
	contract.PathHealth:   {},
	contract.PathRegister: {},
	contract.PathLogin:    {},
	contract.PathRefresh:  {},
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := unauthenticatedPaths[req.URL.Path]; ok {
		return t.next.RoundTrip(req)
	}

	tok := t.c.Token()
	resp, err := t.next.RoundTrip(withBearer(req, tok.AccessToken))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if tok.RefreshToken == "" || !tokenExpired(resp) {
		return resp, nil
	}

	fresh, rerr := t.c.refreshAfter(req.Context(), tok)
	if rerr != nil {
		return resp, nil
	}

	retry, err := rewind(req)
	if err != nil {
		return resp, nil
	}
	_ = resp.Body.Close()
	return t.next.RoundTrip(withBearer(retry, fresh.AccessToken))
}

func withBearer(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Del(common.AuthorizationHeaderName)
	if token != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return r
}

// rewind returns a copy of req with a fresh body for replay.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, errNoReplay
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r.Body = body
	return r, nil
}

// tokenExpired peeks at a 401 body for the token_expired code and restores
// the body for later readers.
func tokenExpired(resp *http.Response) bool {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return false
	}
	return gjson.GetBytes(b, "error.code").String() == contract.CodeTokenExpired
}
