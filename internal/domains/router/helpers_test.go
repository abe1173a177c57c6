package router_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// fakeRouter mimics the local API of both Peplink firmware generations:
// cookie-based sessions with a {stat: ...} login envelope, or token-based
// sessions with a {success, token} envelope. Data bodies are configured per
// test via the funcs map, keyed by API function name for both the
// path-style and the cgi-style addressing scheme.
type fakeRouter struct {
	mu sync.Mutex

	tokenMode  bool
	failLogin  bool
	loginDelay time.Duration

	// pending auth failures on data endpoints: "http" answers 401, "body"
	// answers an in-body {stat:"fail", code:401} envelope
	rejectData     int
	rejectDataMode string

	// pending 401s on the status endpoint used for session verification
	rejectVerify int

	loginCount int
	dataCount  int
	sessions   map[string]bool

	funcs map[string]string

	// funcHandlers wins over funcs and can vary the body on request
	// parameters, e.g. per infoType
	funcHandlers map[string]func(r *http.Request) string
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		sessions:       map[string]bool{},
		funcs:          map[string]string{},
		funcHandlers:   map[string]func(r *http.Request) string{},
		rejectDataMode: "http",
	}
}

func (f *fakeRouter) start() *httptest.Server {
	return httptest.NewServer(f)
}

func (f *fakeRouter) startTLS() *httptest.Server {
	return httptest.NewTLSServer(f)
}

func (f *fakeRouter) counts() (logins, data int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.loginCount, f.dataCount
}

func (f *fakeRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/api/login" {
		f.handleLogin(w, r)
		return
	}

	if !f.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if r.URL.Path == "/api/status" {
		f.mu.Lock()
		rejected := f.rejectVerify > 0
		if rejected {
			f.rejectVerify--
		}
		f.mu.Unlock()

		if rejected {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		fmt.Fprint(w, `{"stat":"ok","response":{}}`)
		return
	}

	fn := f.functionName(r)

	f.mu.Lock()
	f.dataCount++
	if f.rejectData > 0 {
		f.rejectData--
		mode := f.rejectDataMode
		f.mu.Unlock()

		if mode == "body" {
			fmt.Fprint(w, `{"stat":"fail","code":401,"message":"Unauthorized"}`)
			return
		}

		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	handler := f.funcHandlers[fn]
	body, found := f.funcs[fn]
	f.mu.Unlock()

	if handler != nil {
		fmt.Fprint(w, handler(r))
		return
	}

	if !found {
		fmt.Fprint(w, `{"stat":"fail","code":404,"message":"No such function"}`)
		return
	}

	fmt.Fprint(w, body)
}

func (f *fakeRouter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)

	if f.failLogin {
		fmt.Fprint(w, `{"stat":"fail","message":"Invalid username or password"}`)
		return
	}

	if f.loginDelay > 0 {
		time.Sleep(f.loginDelay)
	}

	f.mu.Lock()
	f.loginCount++
	token := fmt.Sprintf("session-%d", f.loginCount)
	f.sessions[token] = true
	f.mu.Unlock()

	if f.tokenMode {
		fmt.Fprintf(w, `{"success":true,"token":"%s"}`, token)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "bauth", Value: token, Path: "/", HttpOnly: true})
	fmt.Fprint(w, `{"stat":"ok"}`)
}

func (f *fakeRouter) authorized(r *http.Request) bool {
	var token string
	if cookie, err := r.Cookie("bauth"); err == nil {
		token = cookie.Value
	} else if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Token ") {
		token = strings.TrimPrefix(auth, "Token ")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sessions[token]
}

func (f *fakeRouter) functionName(r *http.Request) string {
	if strings.HasPrefix(r.URL.Path, "/cgi-bin/") {
		return r.URL.Query().Get("func")
	}

	return strings.TrimPrefix(r.URL.Path, "/api/")
}
