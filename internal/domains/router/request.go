package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/peplink-community/peplink-agent/internal/constants"
	"github.com/peplink-community/peplink-agent/internal/errs"
)

const (
	statOK   = "ok"
	statFail = "fail"

	codeUnauthorized = 401
)

type loginResponse struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Success *bool  `json:"success"`
	Token   string `json:"token"`
}

// apiEnvelope is the common response wrapper of both firmware generations:
// {stat: "ok"|"fail", response?, message?, code?}. The payload stays raw so
// each accessor can fold its own shape variants.
type apiEnvelope struct {
	Stat     string          `json:"stat"`
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`

	// body is the full undecoded response, kept for firmware that answers
	// without the stat/response wrapper.
	body json.RawMessage
}

// payload returns the wrapped response when present, the bare body otherwise.
func (e apiEnvelope) payload() json.RawMessage {
	if len(e.Response) > 0 {
		return e.Response
	}

	return e.body
}

func (e apiEnvelope) failed() bool {
	return e.Stat == statFail
}

func (e apiEnvelope) unauthorized() bool {
	return e.Stat == statFail && e.Code == codeUnauthorized
}

// formatAPIPath builds the stable REST-style endpoint: /api/<func>.
func formatAPIPath(fn string) string {
	return "/api/" + strings.TrimPrefix(fn, "/")
}

// formatCGIPath builds the legacy query-string endpoint with a per-call
// cache-busting millisecond timestamp so intermediaries never serve a stale
// body.
func formatCGIPath(fn string, params map[string]string) string {
	var sb strings.Builder
	sb.WriteString("/cgi-bin/")
	sb.WriteString(constants.CGIApp)
	sb.WriteString("/api.cgi?func=")
	sb.WriteString(url.QueryEscape(fn))
	sb.WriteString("&_=")
	sb.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 10))

	for key, value := range params {
		sb.WriteString("&")
		sb.WriteString(url.QueryEscape(key))
		sb.WriteString("=")
		// the CGI endpoint expects %20 for spaces, not '+'
		sb.WriteString(strings.ReplaceAll(url.QueryEscape(value), "+", "%20"))
	}

	return sb.String()
}

// apiRequest performs one authenticated call. A 401 status or an in-body
// {stat:"fail", code:401} envelope means the router silently dropped the
// session: the request forces exactly one re-authentication and retries the
// identical call once. A second auth failure is terminal; every other
// non-2xx status is terminal immediately.
func (s *Service) apiRequest(ctx context.Context, method, endpoint string, body any) (envelope apiEnvelope, err error) {
	if ok, err := s.EnsureConnected(ctx, false); err != nil {
		return envelope, fmt.Errorf("apiRequest: %w", err)
	} else if !ok {
		return envelope, fmt.Errorf("apiRequest: %w", errs.ErrNotConnected)
	}

	mode, token := s.credential()
	envelope, expired, err := s.doRequest(ctx, method, endpoint, body, mode, token)
	if err != nil {
		return envelope, fmt.Errorf("apiRequest: %w", err)
	}

	if !expired {
		return envelope, nil
	}

	log.Debug().Str("endpoint", endpoint).Msg("apiRequest: session expired, re-authenticating")
	if ok, err := s.refreshSession(ctx, token); err != nil {
		return envelope, fmt.Errorf("apiRequest: %w", err)
	} else if !ok {
		return envelope, fmt.Errorf("apiRequest: re-authentication failed: %w", errs.ErrUnauthorized)
	}

	mode, token = s.credential()
	envelope, expired, err = s.doRequest(ctx, method, endpoint, body, mode, token)
	if err != nil {
		return envelope, fmt.Errorf("apiRequest: %w", err)
	}

	if expired {
		s.clearSession()
		return envelope, fmt.Errorf("apiRequest: still unauthorized after reconnect: %w", errs.ErrUnauthorized)
	}

	return envelope, nil
}

// doRequest issues a single HTTP call with the given credential attached
// explicitly; cookies are never left to a jar. expired flags auth-style
// failures that are worth one forced re-login, and the caller keeps the
// credential it used so the refresh can tell a genuinely stale session from
// one a concurrent caller already replaced.
func (s *Service) doRequest(ctx context.Context, method, endpoint string, body any, mode authMode, token string) (envelope apiEnvelope, expired bool, err error) {
	req := s.client.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	attachCredential(req, mode, token)

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return envelope, false, fmt.Errorf("doRequest: %w", err)
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return envelope, true, nil
	}

	if resp.IsError() {
		return envelope, false, fmt.Errorf("doRequest: %d %s: %w", resp.StatusCode(), resp.Status(), errs.ErrAPIError)
	}

	// malformed bodies are absorbed here: the accessor sees an envelope it
	// cannot fold and degrades to its canonical empty shape
	if err = json.Unmarshal(resp.Body(), &envelope); err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("doRequest: undecodable response body")
		return apiEnvelope{}, false, nil
	}
	envelope.body = resp.Body()

	if envelope.unauthorized() {
		return envelope, true, nil
	}

	return envelope, false, nil
}

// requestFunc calls a named API function over the given addressing scheme.
func (s *Service) requestFunc(ctx context.Context, fn string, public bool, params map[string]string) (apiEnvelope, error) {
	endpoint := formatCGIPath(fn, params)
	if public {
		endpoint = formatAPIPath(fn)
	}

	return s.apiRequest(ctx, resty.MethodGet, endpoint, nil)
}
