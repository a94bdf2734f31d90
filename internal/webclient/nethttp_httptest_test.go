package webclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// noopLogger is a test-local logger implementation that discards all log messages
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, fields ...logging.Field) {}
func (n *noopLogger) Info(msg string, fields ...logging.Field)  {}
func (n *noopLogger) Warn(msg string, fields ...logging.Field)  {}
func (n *noopLogger) Error(msg string, fields ...logging.Field) {}
func (n *noopLogger) With(fields ...logging.Field) logging.Logger {
	return n
}

func newClient(t *testing.T, ts *httptest.Server, cfg webclient.Config) *webclient.NetHTTPClient {
	t.Helper()
	client, err := webclient.NewNetHTTPClient(cfg, &noopLogger{}, ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// ─── Do: real HTTP round-trip via httptest ──────────────────────────────

func TestNetHTTPClient_Do_GET_ReturnsBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "hello")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "response body")
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})
	resp, err := client.Do(context.Background(), &webclient.Request{Method: "GET", URL: ts.URL + "/test"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 || !resp.OK() {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "response body" {
		t.Errorf("expected 'response body', got %q", resp.Body)
	}
	if resp.Headers.Get("X-Custom") != "hello" {
		t.Errorf("expected X-Custom header 'hello', got %q", resp.Headers.Get("X-Custom"))
	}
	if resp.Redirected {
		t.Error("expected no redirect")
	}
}

func TestNetHTTPClient_Do_SetsDefaultUserAgent(t *testing.T) {
	t.Parallel()
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{UserAgent: "pulse-test/1.0"})
	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ua != "pulse-test/1.0" {
		t.Errorf("expected configured user agent, got %q", ua)
	}
}

func TestNetHTTPClient_Do_ForwardsHeaders(t *testing.T) {
	t.Parallel()
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Accept")
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})
	_, err := client.Do(context.Background(), &webclient.Request{
		Method:  "GET",
		URL:     ts.URL,
		Headers: http.Header{"Accept": []string{"text/html"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "text/html" {
		t.Errorf("expected Accept header forwarded, got %q", got)
	}
}

func TestNetHTTPClient_Do_RecordsRedirect(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "moved here")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})
	resp, err := client.Get(context.Background(), ts.URL+"/old")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.Redirected || resp.FinalURL != ts.URL+"/new" {
		t.Errorf("expected redirect to /new, got redirected=%v final=%q", resp.Redirected, resp.FinalURL)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected final status 200, got %d", resp.StatusCode)
	}
}

func TestNetHTTPClient_Do_HEADHasNoBody(t *testing.T) {
	t.Parallel()
	var method string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})
	resp, err := client.Do(context.Background(), &webclient.Request{Method: "head", URL: ts.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if method != http.MethodHead {
		t.Errorf("expected HEAD, got %s", method)
	}
	if len(resp.Body) != 0 {
		t.Errorf("expected empty body, got %q", resp.Body)
	}
}

func TestNetHTTPClient_Do_PerRequestTimeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	client := newClient(t, ts, webclient.Config{Timeout: time.Minute})
	_, err := client.Do(context.Background(), &webclient.Request{URL: ts.URL, Timeout: 50 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestNetHTTPClient_Do_MaxBodyBytes(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 4096))
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{MaxBodyBytes: 100})
	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("expected body capped at 100 bytes, got %d", len(resp.Body))
	}
}

func TestNetHTTPClient_Do_NilRequest_ReturnsError(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewNetHTTPClient(webclient.Config{}, &noopLogger{}, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	if _, err := client.Do(context.Background(), nil); !errors.Is(err, webclient.ErrNilRequest) {
		t.Fatalf("expected ErrNilRequest, got %v", err)
	}
}

func TestNetHTTPClient_Do_ConnectionRefused_ReturnsError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	client, _ := webclient.NewNetHTTPClient(webclient.Config{}, &noopLogger{}, nil)
	if _, err := client.Get(context.Background(), addr); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestResponse_BodyReaderDecodesCharset(t *testing.T) {
	t.Parallel()
	// "café" in ISO-8859-1
	resp := &webclient.Response{
		Headers: http.Header{"Content-Type": []string{"text/html; charset=iso-8859-1"}},
		Body:    []byte{'c', 'a', 'f', 0xe9},
	}
	b, err := io.ReadAll(resp.BodyReader())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "café" {
		t.Errorf("expected decoded café, got %q", b)
	}
}

// ─── Factory ────────────────────────────────────────────────────────────

func TestNewWebClient_DefaultBackend(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{}, &noopLogger{})
	if err != nil {
		t.Fatalf("Failed to create default client: %v", err)
	}
	defer client.Close()
	if _, ok := client.(*webclient.NetHTTPClient); !ok {
		t.Errorf("expected *NetHTTPClient, got %T", client)
	}
}

func TestNewWebClient_NameIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{Client: " NetHTTP "}, &noopLogger{})
	if err != nil {
		t.Fatalf("NewWebClient: %v", err)
	}
	defer client.Close()
}

func TestNewWebClient_UnknownBackend(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{Client: "unknown"}, &noopLogger{})
	if !errors.Is(err, webclient.ErrUnknownClient) {
		t.Fatalf("err = %v, want ErrUnknownClient", err)
	}
	if client != nil {
		t.Fatal("Expected nil client for unknown backend")
	}
}
