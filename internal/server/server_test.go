package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/setlistx/internal/ratelimit"
	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/telemetry"
	tu "github.com/desertthunder/setlistx/internal/testing"
	"github.com/desertthunder/setlistx/internal/token"
	"github.com/goccy/go-json"
)

type stubSource struct {
	body  string
	err   error
	calls int
	id    string
}

func (s *stubSource) FetchByID(ctx context.Context, id, apiKey string) (json.RawMessage, error) {
	s.calls++
	s.id = id
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.body), nil
}

const payload = `{"id":"63de4613","eventDate":"23-08-1964","artist":{"name":"The Beatles"},
"sets":{"set":[{"song":[{"name":"Yesterday"},{"name":"Help! (live)"}]},{"song":[{"name":"Twist and Shout"}]}]}}`

func newTestServer(src services.SetlistSource, apiKey string, mint token.MintFunc, limiter *ratelimit.Limiter) *Server {
	logger := shared.NewLogger(io.Discard)
	return New(Opts{
		Setlists: NewSetlistHandler(src, apiKey, logger),
		DevToken: NewDevTokenHandler(token.New(mint, token.WithLogger(logger)), logger),
		Limiter:  limiter,
		Metrics:  telemetry.New(),
		Logger:   logger,
	})
}

func get(t *testing.T, h http.Handler, target string, headers ...string) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body ErrorResponse
	if rec.Code >= 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("error body is not JSON: %s", rec.Body.String())
		}
	}
	return rec, body
}

func TestSetlistHandler(t *testing.T) {
	t.Run("returns mapped setlist", func(t *testing.T) {
		src := &stubSource{body: payload}
		srv := newTestServer(src, "key", nil, nil)

		for _, path := range []string{"/api/setlist?input=63de4613", "/api/setlist/proxy?id=63de4613", "/api/setlist?url=https://www.setlist.fm/setlist/x/1964/y-63de4613.html"} {
			rec, _ := get(t, srv, path)
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
			}

			var got struct {
				Artist string `json:"artist"`
				Sets   [][]struct {
					Name   string `json:"name"`
					Artist string `json:"artist"`
				} `json:"sets"`
			}
			json.Unmarshal(rec.Body.Bytes(), &got)
			if got.Artist != "The Beatles" || len(got.Sets) != 2 || got.Sets[0][1].Name != "Help! (live)" {
				t.Errorf("%s: unexpected body %s", path, rec.Body.String())
			}
		}
		if src.id != "63de4613" {
			t.Errorf("expected parsed id, got %q", src.id)
		}
	})

	t.Run("input validation happens before fetching", func(t *testing.T) {
		tc := []struct {
			name   string
			target string
			msg    string
		}{
			{name: "missing", target: "/api/setlist", msg: msgMissingInput},
			{name: "too long", target: "/api/setlist?input=" + strings.Repeat("a", 2001), msg: msgInputTooLong},
			{name: "invalid", target: "/api/setlist?input=not-a-valid-id!!!", msg: msgInvalidInput},
			{name: "spoofed host", target: "/api/setlist?input=https://setlist.fm.evil.net/setlist/a/b-c1.html", msg: msgInvalidInput},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				src := &stubSource{body: payload}
				rec, body := get(t, newTestServer(src, "key", nil, nil), tt.target)
				if rec.Code != http.StatusBadRequest || body.Error != tt.msg || body.Code != codeBadRequest {
					t.Errorf("expected 400 %q, got %d %+v", tt.msg, rec.Code, body)
				}
				if src.calls != 0 {
					t.Error("expected no upstream call")
				}
			})
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		rec, body := get(t, newTestServer(&stubSource{}, "", nil, nil), "/api/setlist?input=abcd")
		if rec.Code != http.StatusServiceUnavailable || body.Error != msgNoAPIKey {
			t.Errorf("expected 503 %q, got %d %+v", msgNoAPIKey, rec.Code, body)
		}
	})

	t.Run("upstream errors", func(t *testing.T) {
		tc := []struct {
			name   string
			err    error
			status int
			code   string
			msg    string
		}{
			{name: "not found", err: &services.FetchError{Status: 404, Message: "Not Found"}, status: 404, code: codeNotFound, msg: "Not Found"},
			{name: "rate limited", err: &services.FetchError{Status: 429, Message: "rate limit exceeded"}, status: 429, code: codeRateLimit, msg: msgRateLimited},
			{name: "server error", err: &services.FetchError{Status: 502, Message: "bad gateway"}, status: 503, code: codeServiceUnavailable, msg: "bad gateway"},
			{name: "pass through", err: &services.FetchError{Status: 403, Message: "Forbidden"}, status: 403, code: codeInternal, msg: "Forbidden"},
			{name: "long message", err: &services.FetchError{Status: 400, Message: strings.Repeat("x", 600)}, status: 400, code: codeBadRequest, msg: strings.Repeat("x", 500) + "…"},
			{name: "untyped error", err: errors.New("boom"), status: 500, code: codeInternal, msg: msgInternal},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				rec, body := get(t, newTestServer(&stubSource{err: tt.err}, "key", nil, nil), "/api/setlist?input=abcd")
				if rec.Code != tt.status {
					t.Errorf("expected %d, got %d", tt.status, rec.Code)
				}
				if body.Code != tt.code || body.Error != tt.msg {
					t.Errorf("expected %s %q, got %+v", tt.code, tt.msg, body)
				}
			})
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec, body := get(t, newTestServer(&stubSource{body: `{"id":"x"}`}, "key", nil, nil), "/api/setlist?input=abcd")
		if rec.Code != http.StatusBadGateway || !strings.Contains(body.Error, "invalid setlist response") {
			t.Errorf("expected 502 invalid setlist response, got %d %+v", rec.Code, body)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		srv := newTestServer(&stubSource{}, "key", nil, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/setlist?input=abcd", nil))
		if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodGet {
			t.Errorf("expected 405 with Allow header, got %d", rec.Code)
		}
	})
}

func TestDevTokenHandler(t *testing.T) {
	mint := func(context.Context) (string, error) { return "signed.jwt", nil }

	t.Run("returns token with no-store", func(t *testing.T) {
		srv := newTestServer(nil, "", mint, ratelimit.New(30, time.Minute))
		rec, _ := get(t, srv, "/api/apple/dev-token")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body services.DevTokenResponse
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Token != "signed.jwt" {
			t.Errorf("expected token, got %+v", body)
		}
		if rec.Header().Get("Cache-Control") != "no-store" {
			t.Error("expected Cache-Control: no-store")
		}
		if rec.Header().Get("X-RateLimit-Remaining") != "29" {
			t.Errorf("expected 29 remaining, got %q", rec.Header().Get("X-RateLimit-Remaining"))
		}
	})

	t.Run("mint failures are 503", func(t *testing.T) {
		tc := []struct {
			name string
			mint token.MintFunc
			msg  string
		}{
			{name: "missing credentials", mint: services.StaticToken(""), msg: msgMissingApple},
			{name: "no mint", mint: nil, msg: msgMissingApple},
			{name: "signing failure", mint: func(context.Context) (string, error) { return "", errors.New("bad key") }, msg: msgSigningFailed},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				rec, body := get(t, newTestServer(nil, "", tt.mint, nil), "/api/apple/dev-token")
				if rec.Code != http.StatusServiceUnavailable || body.Error != tt.msg || body.Code != codeServiceUnavailable {
					t.Errorf("expected 503 %q, got %d %+v", tt.msg, rec.Code, body)
				}
				if strings.Contains(rec.Body.String(), "bad key") {
					t.Error("internal error detail leaked")
				}
			})
		}
	})

	t.Run("rate limited per client", func(t *testing.T) {
		clock := tu.NewFakeClock()
		limiter := ratelimit.New(2, time.Minute, ratelimit.WithClock(clock.Now))
		srv := newTestServer(nil, "", mint, limiter)

		for range 2 {
			if rec, _ := get(t, srv, "/api/apple/dev-token", "X-Forwarded-For", "1.2.3.4, 10.0.0.1"); rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
		}

		rec, body := get(t, srv, "/api/apple/dev-token", "X-Forwarded-For", "1.2.3.4")
		if rec.Code != http.StatusTooManyRequests || body.Code != codeRateLimit {
			t.Errorf("expected 429, got %d %+v", rec.Code, body)
		}
		if rec.Header().Get("Retry-After") != "60" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
			t.Errorf("unexpected headers %v", rec.Header())
		}

		if rec, _ := get(t, srv, "/api/apple/dev-token", "X-Real-IP", "5.6.7.8"); rec.Code != http.StatusOK {
			t.Errorf("expected other client unaffected, got %d", rec.Code)
		}

		clock.Advance(time.Minute)
		if rec, _ := get(t, srv, "/api/apple/dev-token", "X-Forwarded-For", "1.2.3.4"); rec.Code != http.StatusOK {
			t.Errorf("expected window reset, got %d", rec.Code)
		}
	})
}

func TestServer(t *testing.T) {
	srv := newTestServer(&stubSource{}, "key", nil, nil)

	t.Run("health", func(t *testing.T) {
		rec, _ := get(t, srv, "/api/health")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec, _ := get(t, srv, "/metrics")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
			t.Errorf("expected prometheus output, got %d", rec.Code)
		}
	})

	t.Run("request id", func(t *testing.T) {
		rec, _ := get(t, srv, "/api/health", RequestIDHeader, "abc-123")
		if rec.Header().Get(RequestIDHeader) != "abc-123" {
			t.Errorf("expected request id echoed, got %q", rec.Header().Get(RequestIDHeader))
		}

		rec, _ = get(t, srv, "/api/health")
		if len(rec.Header().Get(RequestIDHeader)) != 36 {
			t.Errorf("expected generated uuid, got %q", rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestClientKey(t *testing.T) {
	tc := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded for first entry", headers: map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2"}, want: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "3.3.3.3"}, want: "3.3.3.3"},
		{name: "empty forwarded falls through", headers: map[string]string{"X-Forwarded-For": " ,", "X-Real-IP": "3.3.3.3"}, want: "3.3.3.3"},
		{name: "remote host", remote: "4.4.4.4:5555", want: "4.4.4.4"},
		{name: "remote without port", remote: "socket", want: "socket"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientKey(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
