package router

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/peplink-community/peplink-agent/internal/constants"
	"github.com/peplink-community/peplink-agent/internal/errs"
)

type State string

const (
	StateDisconnected   State = "disconnected"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

type authMode string

const (
	authModeNone   authMode = ""
	authModeCookie authMode = "cookie"
	authModeToken  authMode = "token"
)

const (
	defaultReqTimeout = time.Second * 10
)

type Config struct {
	Host      string
	Username  string
	Password  string
	VerifySSL bool
	Timeout   time.Duration
}

// Service talks to the local JSON API of a single Peplink router. One
// instance owns one session; data accessors may be called concurrently and
// share it.
type Service struct {
	cfg       Config
	client    *resty.Client
	ownClient bool

	// authMx serializes the login handshake: concurrent callers that find
	// the session expired wait for one in-flight handshake instead of each
	// logging in on their own.
	authMx sync.Mutex

	sessionMx sync.RWMutex
	state     State
	mode      authMode
	token     string
}

func NewService(cfg Config) *Service {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultReqTimeout
	}

	// the session credential is attached explicitly per request; a cookie
	// jar would keep resending a stale bauth cookie after silent expiry
	client := resty.New().
		SetBaseURL(baseURL(cfg.Host)).
		SetTimeout(cfg.Timeout).
		SetCookieJar(nil)

	if !cfg.VerifySSL {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // routers ship self-signed certificates
	}

	return &Service{
		cfg:       cfg,
		client:    client,
		ownClient: true,
		state:     StateDisconnected,
	}
}

// NewServiceWithClient builds a service on a caller-supplied resty client.
// The caller keeps ownership of the transport; Close will not release it.
func NewServiceWithClient(cfg Config, client *resty.Client) *Service {
	client.SetBaseURL(baseURL(cfg.Host))

	return &Service{
		cfg:    cfg,
		client: client,
		state:  StateDisconnected,
	}
}

func baseURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}

	return "https://" + host
}

func (s *Service) State() State {
	s.sessionMx.RLock()
	defer s.sessionMx.RUnlock()

	return s.state
}

func (s *Service) setState(state State) {
	s.sessionMx.Lock()
	defer s.sessionMx.Unlock()

	s.state = state
}

func (s *Service) setSession(mode authMode, token string) {
	s.sessionMx.Lock()
	defer s.sessionMx.Unlock()

	s.state = StateAuthenticated
	s.mode = mode
	s.token = token
}

func (s *Service) clearSession() {
	s.sessionMx.Lock()
	defer s.sessionMx.Unlock()

	s.state = StateDisconnected
	s.mode = authModeNone
	s.token = ""
}

func (s *Service) credential() (mode authMode, token string) {
	s.sessionMx.RLock()
	defer s.sessionMx.RUnlock()

	return s.mode, s.token
}

// Connect authenticates against the router. An ordinary credential rejection
// is reported as ok=false with a nil error; only TLS validation failures are
// returned as errors so setup flows can point at the verify-SSL setting.
func (s *Service) Connect(ctx context.Context) (ok bool, err error) {
	s.authMx.Lock()
	defer s.authMx.Unlock()

	if s.State() == StateAuthenticated {
		return true, nil
	}

	return s.connect(ctx)
}

// EnsureConnected is idempotent when a session exists and force is false.
// With force set the cached session is discarded and a fresh handshake runs.
func (s *Service) EnsureConnected(ctx context.Context, force bool) (ok bool, err error) {
	s.authMx.Lock()
	defer s.authMx.Unlock()

	if s.State() == StateAuthenticated && !force {
		return true, nil
	}

	s.clearSession()

	return s.connect(ctx)
}

// refreshSession re-runs the login handshake for a caller whose request was
// rejected with the given credential. When another caller already replaced
// that credential while this one waited on authMx, the fresh session is
// reused instead of issuing a duplicate login.
func (s *Service) refreshSession(ctx context.Context, staleToken string) (ok bool, err error) {
	s.authMx.Lock()
	defer s.authMx.Unlock()

	if s.State() == StateAuthenticated {
		if _, token := s.credential(); token != staleToken {
			return true, nil
		}
	}

	s.clearSession()

	return s.connect(ctx)
}

// connect runs the login handshake. Callers must hold authMx. Whatever
// happens, the session never ends up half-populated: either the verify step
// succeeded and state is Authenticated, or state is Disconnected.
func (s *Service) connect(ctx context.Context) (ok bool, err error) {
	s.setState(StateAuthenticating)
	defer func() {
		if !ok {
			s.clearSession()
		}
	}()

	loginBody := map[string]string{
		"username":  s.cfg.Username,
		"password":  s.cfg.Password,
		"challenge": "challenge",
	}

	var loginResp loginResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(loginBody).
		SetResult(&loginResp).
		Post(constants.LoginEndpoint)
	if err != nil {
		if isCertificateError(err) {
			return false, fmt.Errorf("connect: %w: %w", errs.ErrCertificate, err)
		}

		log.Error().Err(err).Str("host", s.cfg.Host).Msg("connect: login request failed")
		return false, nil
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		log.Error().Str("host", s.cfg.Host).Msg("connect: login rejected with 401")
		return false, nil
	}

	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("host", s.cfg.Host).Msg("connect: login request error")
		return false, nil
	}

	if loginResp.Stat == statFail || (loginResp.Success != nil && !*loginResp.Success) {
		log.Error().Str("message", loginResp.Message).Str("host", s.cfg.Host).Msg("connect: login failed")
		return false, nil
	}

	mode, token := extractCredential(loginResp, resp.Cookies(), resp.Header().Get("Set-Cookie"))
	if mode == authModeNone {
		log.Error().Str("host", s.cfg.Host).Msg("connect: no session credential in login response")
		return false, nil
	}

	if ok = s.verifySession(ctx, mode, token); !ok {
		return false, nil
	}

	s.setSession(mode, token)

	log.Debug().Str("host", s.cfg.Host).Str("mode", string(mode)).Msg("connect: authenticated")
	return true, nil
}

// verifySession hits a lightweight protected endpoint with the fresh
// credential. Anything but a 401 or a transport failure counts as verified,
// application-level error envelopes included.
func (s *Service) verifySession(ctx context.Context, mode authMode, token string) bool {
	req := s.client.R().SetContext(ctx)
	attachCredential(req, mode, token)

	resp, err := req.Get(constants.StatusEndpoint)
	if err != nil {
		log.Error().Err(err).Str("host", s.cfg.Host).Msg("verifySession: request failed")
		return false
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		log.Error().Str("host", s.cfg.Host).Msg("verifySession: session rejected with 401")
		return false
	}

	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("host", s.cfg.Host).Msg("verifySession: unexpected status")
		return false
	}

	return true
}

// extractCredential pulls a session credential from a login response: a body
// token on the {success, token} firmware generation, otherwise the bauth
// session cookie, scanning the raw Set-Cookie header when the cookie jar
// missed it.
func extractCredential(body loginResponse, cookies []*http.Cookie, setCookie string) (authMode, string) {
	if lo.IsNotEmpty(body.Token) {
		return authModeToken, body.Token
	}

	for _, cookie := range cookies {
		if cookie.Name == constants.AuthCookieName && lo.IsNotEmpty(cookie.Value) {
			return authModeCookie, cookie.Value
		}
	}

	for _, part := range strings.Split(setCookie, ";") {
		part = strings.TrimSpace(part)
		if value, found := strings.CutPrefix(part, constants.AuthCookieName+"="); found && lo.IsNotEmpty(value) {
			return authModeCookie, value
		}
	}

	return authModeNone, ""
}

func attachCredential(req *resty.Request, mode authMode, token string) {
	switch mode {
	case authModeCookie:
		req.SetCookie(&http.Cookie{Name: constants.AuthCookieName, Value: token})
	case authModeToken:
		req.SetHeader("Authorization", "Token "+token)
	case authModeNone:
	}
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}

	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}

	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}

	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &invalidErr)
}

// Close drops the session and, when the transport is owned by the service,
// releases its idle connections. Safe to call repeatedly or before Connect.
func (s *Service) Close() {
	s.clearSession()

	if s.ownClient {
		s.client.GetClient().CloseIdleConnections()
	}
}
