package requester

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/apikit/config"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/security"
	"github.com/kbukum/apikit/security/tlstest"
)

// usersAPI is a small REST backend for the users resource.
func usersAPI() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"page":   c.Query("page"),
			"tags":   c.QueryArray("tag"),
			"accept": c.GetHeader("Accept"),
			"x_foo":  c.GetHeader("X-Foo"),
		})
	})
	r.POST("/users", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{
			"name":         c.PostForm("name"),
			"content_type": c.ContentType(),
			"query":        c.Request.URL.RawQuery,
		})
	})
	r.GET("/users/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"error": "nf"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	r.PUT("/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "name": c.PostForm("name")})
	})
	r.DELETE("/users/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/users/:id/avatar", func(c *gin.Context) {
		c.String(http.StatusRequestEntityTooLarge, "too big")
	})
	r.GET("/users/:id/card", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html", []byte("<b>ada</b>"))
	})
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	return r
}

func newUsersSource(t *testing.T, host string, custom Endpoints) (*Client, *Source) {
	t.Helper()
	c, err := New(Config{Name: "users", Host: host})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	src, err := c.Source("users", custom, map[string]string{"X-Foo": "source"})
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	return c, src
}

func TestSource_HTTP(t *testing.T) {
	srv := httptest.NewServer(usersAPI())
	defer srv.Close()

	_, users := newUsersSource(t, srv.URL, Endpoints{
		"find":   NewEndpoint("GET", "users/:id", "id"),
		"avatar": NewEndpoint("POST", "users/:id/avatar", "id"),
		"card":   NewEndpoint("GET", "users/:id/card", "id").AsRaw(),
	})
	ctx := context.Background()

	t.Run("get sends a query string", func(t *testing.T) {
		out, err := users.Get(ctx, Data{"page": 2, "tag": []string{"a", "b"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[string]any{
			"page":   "2",
			"tags":   []any{"a", "b"},
			"accept": ContentTypeJSON,
			"x_foo":  "source",
		}
		if diff := cmp.Diff(want, out.Value); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("post sends a form body", func(t *testing.T) {
		out, err := users.Post(ctx, Data{"name": "ada"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[string]any{"name": "ada", "content_type": ContentTypeForm, "query": ""}
		if diff := cmp.Diff(want, out.Value); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
		if out.StatusCode != http.StatusCreated {
			t.Errorf("expected 201, got %d", out.StatusCode)
		}
	})

	t.Run("update substitutes the id", func(t *testing.T) {
		out, err := users.Update(ctx, Data{"id": 7, "name": "grace"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"id": "7", "name": "grace"}, out.Value); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("remove yields nil on 204", func(t *testing.T) {
		out, err := users.Remove(ctx, Data{"id": 7})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.StatusCode != http.StatusNoContent || out.Value != nil {
			t.Errorf("unexpected outcome %+v", out)
		}
	})

	t.Run("404 fails with the decoded body", func(t *testing.T) {
		_, err := users.Call(ctx, "find", Data{"id": "missing"})
		appErr, ok := AsApplicationError(err)
		if !ok {
			t.Fatalf("expected *ApplicationError, got %v", err)
		}
		if diff := cmp.Diff(map[string]any{"error": "nf"}, appErr.Body); diff != "" {
			t.Errorf("body mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("413 succeeds with text", func(t *testing.T) {
		out, err := users.Call(ctx, "avatar", Data{"id": 7, "size": 1 << 20})
		if err != nil {
			t.Fatalf("413 must not fail, got %v", err)
		}
		if out.Value != "too big" {
			t.Errorf("expected text value, got %v", out.Value)
		}
	})

	t.Run("raw endpoint returns the response", func(t *testing.T) {
		out, err := users.Call(ctx, "card", Data{"id": 7})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.Raw || out.Response.Text() != "<b>ada</b>" {
			t.Errorf("unexpected raw outcome %+v", out)
		}
		if ct := out.Response.Header.Get("Content-Type"); ct != "text/html" {
			t.Errorf("expected text/html, got %q", ct)
		}
	})
}

func TestSource_HTTP_TransportFailures(t *testing.T) {
	srv := httptest.NewServer(usersAPI())
	defer srv.Close()

	c, err := New(Config{Host: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()
	slow, err := c.Source("slow", nil, nil)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = slow.Get(ctx, nil)
	if !IsTimeout(err) {
		t.Errorf("expected timeout transport error, got %v", err)
	}

	refused, err := New(Config{Host: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = refused.Close() }()
	_, err = refused.Request(context.Background(), Request{Method: "GET", URL: "x"}, Endpoint{})
	if !IsTransportError(err) || IsTimeout(err) {
		t.Errorf("expected connection transport error, got %v", err)
	}
}

func TestSource_HTTP_TLS(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := httptest.NewUnstartedServer(usersAPI())
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.Leaf}, MinVersion: tls.VersionTLS12}
	srv.StartTLS()
	defer srv.Close()

	c, err := New(Config{Host: srv.URL, TLS: &security.TLSConfig{CAFile: certs.CAFile}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	src, err := c.Source("users", nil, nil)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	out, err := src.Remove(context.Background(), Data{"id": 1})
	if err != nil {
		t.Fatalf("unexpected error over TLS: %v", err)
	}
	if out.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", out.StatusCode)
	}
}

func TestSource_StandardAndCustom(t *testing.T) {
	tr := &recordingTransport{resp: NewResponse(http.StatusNoContent, nil, nil)}
	c := newTestClient(t, Config{Headers: map[string]string{"X-Client": "1"}}, tr)

	src, err := c.Source("users", Endpoints{
		"get":     NewEndpoint("GET", "users/active"),
		"archive": NewEndpoint("POST", "users/:id/archive", "id"),
	}, map[string]string{"X-Source": "2"})
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	if diff := cmp.Diff([]string{"archive", "get", "post", "remove", "update"}, src.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if src.Path() != "users" {
		t.Errorf("unexpected path %q", src.Path())
	}

	if _, err := src.Get(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.url != "users/active" {
		t.Errorf("custom get must shadow the standard one, got %q", tr.url)
	}
	want := map[string]string{HeaderAccept: ContentTypeJSON, "X-Client": "1", "X-Source": "2"}
	if diff := cmp.Diff(want, tr.req.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	fn, ok := src.Func("archive")
	if !ok {
		t.Fatal("expected archive endpoint")
	}
	if _, err := fn(context.Background(), Data{"id": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.url != "users/3/archive" || tr.req.Method != "POST" {
		t.Errorf("unexpected dispatch %s %s", tr.req.Method, tr.url)
	}

	update, _ := src.Endpoint("update")
	if diff := cmp.Diff(NewEndpoint("PUT", "users/:id", "id"), update); diff != "" {
		t.Errorf("update endpoint mismatch (-want +got):\n%s", diff)
	}
	post, _ := src.Endpoint("post")
	if post.Headers[HeaderContentType] != ContentTypeForm {
		t.Errorf("post endpoint must declare a form Content-Type, got %v", post.Headers)
	}
}

func TestSource_PostWithoutData(t *testing.T) {
	tr := &recordingTransport{resp: NewResponse(http.StatusNoContent, nil, nil)}
	c := newTestClient(t, Config{}, tr)
	src, err := c.Source("users", nil, nil)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	if _, err := src.Post(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.req.Body != nil {
		t.Errorf("expected no body, got %v", tr.req.Body)
	}
	if tr.req.Headers[HeaderContentType] != ContentTypeForm {
		t.Errorf("post keeps its declared Content-Type, got %q", tr.req.Headers[HeaderContentType])
	}
}

func TestSource_UnknownEndpoint(t *testing.T) {
	tr := &recordingTransport{}
	c := newTestClient(t, Config{}, tr)
	src, err := c.Source("users", nil, nil)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	_, err = src.Call(context.Background(), "archive", nil)
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if tr.calls != 0 {
		t.Error("nothing must be sent for an unknown endpoint")
	}
	if _, ok := src.Func("archive"); ok {
		t.Error("expected no archive func")
	}
}

func TestSource_InvalidEndpoint(t *testing.T) {
	c := newTestClient(t, Config{}, &recordingTransport{})

	_, err := c.Source("users", Endpoints{"broken": {Path: "users/broken"}}, nil)
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for a missing method, got %v", err)
	}

	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Details["endpoint"] != "broken" {
		t.Errorf("expected endpoint detail, got %v", err)
	}

	_, err = c.Source("users", Endpoints{"": NewEndpoint("GET", "users")}, nil)
	appErr, ok = errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT for an empty name, got %v", err)
	}
	if detail, has := appErr.Details["endpoint"]; !has || detail != "" {
		t.Errorf("expected the empty name as endpoint detail, got %v", appErr.Details)
	}
	if !strings.Contains(err.Error(), "invalid endpoint") || !strings.Contains(err.Error(), "name: is required") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestSource_CustomEndpointCopied(t *testing.T) {
	tr := &recordingTransport{resp: NewResponse(http.StatusNoContent, nil, nil)}
	c := newTestClient(t, Config{}, tr)
	custom := Endpoints{"find": NewEndpoint("GET", "users/:id", "id")}

	src, err := c.Source("users", custom, nil)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	custom["find"].Params[0] = "changed"

	if _, err := src.Call(context.Background(), "find", Data{"id": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.url != "users/1" {
		t.Errorf("source must keep its own copy of the descriptor, got %q", tr.url)
	}
}

func TestNew_Defaults(t *testing.T) {
	headers := map[string]string{"x-api-key": "k"}
	c, err := New(Config{Headers: headers})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	want := map[string]string{HeaderAccept: ContentTypeJSON, "X-Api-Key": "k"}
	if diff := cmp.Diff(want, c.Headers()); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	headers["x-api-key"] = "changed"
	if c.Headers()["X-Api-Key"] != "k" {
		t.Error("client must keep its own copy of the headers")
	}
	if _, ok := c.Transport().(*HTTPTransport); !ok {
		t.Errorf("expected default HTTPTransport, got %T", c.Transport())
	}
}

func TestNew_AcceptOverride(t *testing.T) {
	c := newTestClient(t, Config{Headers: map[string]string{"accept": "text/csv"}}, &recordingTransport{})
	if got := c.Headers()[HeaderAccept]; got != "text/csv" {
		t.Errorf("configured Accept must win over the default, got %q", got)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"host with spaces", Config{Host: "not a host"}},
		{"host with control character", Config{Host: "api.example.com\n"}},
		{"negative timeout", Config{Timeout: -time.Second}},
		{"half tls pair", Config{TLS: &security.TLSConfig{CertFile: "c.pem"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", err)
			}
		})
	}
}

func TestNew_PlainStringHosts(t *testing.T) {
	for _, host := range []string{"api.example.com", "v1", "http://x.io", "https://api.example.com/base", "/proxy"} {
		t.Run(host, func(t *testing.T) {
			tr := &recordingTransport{resp: NewResponse(http.StatusNoContent, nil, nil)}
			c := newTestClient(t, Config{Host: host}, tr)
			if _, err := c.Request(context.Background(), Request{Method: "GET", URL: "users"}, Endpoint{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.url != host+"/users" {
				t.Errorf("expected %q, got %q", host+"/users", tr.url)
			}
		})
	}
}

func TestClient_Compile(t *testing.T) {
	c := newTestClient(t, Config{Host: "https://api.example.com"}, &recordingTransport{})
	req := c.Compile(NewEndpoint("GET", "users"), Data{"page": 1})
	if req.URL != "users?page=1" {
		t.Errorf("compile must not apply the host, got %q", req.URL)
	}
	if c.Host() != "https://api.example.com" {
		t.Errorf("unexpected host %q", c.Host())
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.yml")
	content := `
client:
  host: https://billing.example.com
  timeout: 5s
  headers:
    X-Api-Key: secret
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadConfig("billing", config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if fc.Client.Name != "billing" {
		t.Errorf("expected name defaulted to billing, got %q", fc.Client.Name)
	}
	if fc.Client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", fc.Client.Timeout)
	}
	want := map[string]string{HeaderAccept: ContentTypeJSON, "X-Api-Key": "secret"}
	if diff := cmp.Diff(want, fc.Client.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if fc.Logging.Level != "debug" || fc.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", fc.Logging)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("client:\n  host: \"not a host\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig("bad", config.WithConfigFile(path)); !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

// syncTransport keeps every request it is sent, keyed by the X-Call header.
type syncTransport struct {
	mu   sync.Mutex
	reqs map[string]Request
	urls map[string]string
}

func (s *syncTransport) RoundTrip(_ context.Context, url string, req Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := req.Headers["X-Call"]
	s.reqs[call] = req
	s.urls[call] = url
	return NewResponse(http.StatusNoContent, nil, nil), nil
}

func TestSource_ConcurrentCalls(t *testing.T) {
	tr := &syncTransport{reqs: map[string]Request{}, urls: map[string]string{}}
	c := newTestClient(t, Config{Host: "https://api", Headers: map[string]string{"X-Client": "c"}}, tr,
		WithBeforeRequest(RequestIDHook("")),
	)
	sourceHeaders := map[string]string{"X-Source": "s"}
	src, err := c.Source("users", nil, sourceHeaders)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	const calls = 64
	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := strconv.Itoa(i)
			call := src.Get
			if i%2 == 0 {
				call = src.Post
			}
			if _, err := call(context.Background(), Data{"n": id}, AddHeaders(map[string]string{"x-call": id})); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	seenIDs := make(map[string]bool, calls)
	for i := range calls {
		id := strconv.Itoa(i)
		req, ok := tr.reqs[id]
		if !ok {
			t.Errorf("call %d never reached the transport", i)
			continue
		}
		if req.Headers["X-Client"] != "c" || req.Headers["X-Source"] != "s" {
			t.Errorf("call %d lost the shared headers: %v", i, req.Headers)
		}
		reqID := req.Headers[HeaderRequestID]
		if reqID == "" || seenIDs[reqID] {
			t.Errorf("call %d has a missing or reused request id %q", i, reqID)
		}
		seenIDs[reqID] = true

		if i%2 == 0 {
			if diff := cmp.Diff(Data{"n": id}, req.Body); diff != "" {
				t.Errorf("call %d body mismatch (-want +got):\n%s", i, diff)
			}
			if req.Headers[HeaderContentType] != ContentTypeForm || tr.urls[id] != "https://api/users" {
				t.Errorf("call %d: unexpected post %s %v", i, tr.urls[id], req.Headers)
			}
		} else {
			if req.Body != nil {
				t.Errorf("call %d: get must not carry a body, got %v", i, req.Body)
			}
			if _, has := req.Headers[HeaderContentType]; has {
				t.Errorf("call %d: get must not carry a Content-Type, got %v", i, req.Headers)
			}
			if tr.urls[id] != "https://api/users?n="+id {
				t.Errorf("call %d: unexpected url %q", i, tr.urls[id])
			}
		}
	}

	if diff := cmp.Diff(map[string]string{HeaderAccept: ContentTypeJSON, "X-Client": "c"}, c.Headers()); diff != "" {
		t.Errorf("client headers changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"X-Source": "s"}, sourceHeaders); diff != "" {
		t.Errorf("source headers changed (-want +got):\n%s", diff)
	}
}
