package hub_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/martyndavies/hubapi-example-langchain/internal/cache"
	"github.com/martyndavies/hubapi-example-langchain/internal/hub"
	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

const catalogJSON = `[{"type":"function","function":{"name":"getWeather","description":"Current weather","parameters":{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}}}]`

func newHub(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *hub.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, hub.New(hub.Options{
		BaseURL:   srv.URL + "/api/hub/",
		AuthToken: "sf-token",
		UserID:    "tester|1",
		Timeout:   5 * time.Second,
	})
}

func TestFetchTools(t *testing.T) {
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/hub/fd" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sf-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(catalogJSON))
	})

	defs, err := c.FetchTools(context.Background())
	if err != nil {
		t.Fatalf("FetchTools: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "getWeather" {
		t.Fatalf("defs = %+v", defs)
	}
}

func TestFetchToolsUnauthorized(t *testing.T) {
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	})

	defs, err := c.FetchTools(context.Background())
	if !errors.Is(err, hub.ErrCatalog) {
		t.Fatalf("err = %v, want ErrCatalog", err)
	}
	if defs != nil {
		t.Errorf("defs = %v, want nil", defs)
	}
}

func TestFetchToolsUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	c := hub.New(hub.Options{
		BaseURL:  srv.URL,
		Cache:    cache.NewMemory(4),
		CacheTTL: time.Minute,
	})
	for i := 0; i < 3; i++ {
		if _, err := c.FetchTools(context.Background()); err != nil {
			t.Fatalf("FetchTools #%d: %v", i, err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("hub hit %d times, want 1", n)
	}
}

func TestFetchToolsDoesNotCacheUndecodableBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Write([]byte("<html>maintenance</html>"))
			return
		}
		w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	c := hub.New(hub.Options{BaseURL: srv.URL, Cache: cache.NewMemory(4), CacheTTL: time.Minute})

	if _, err := c.FetchTools(context.Background()); !errors.Is(err, hub.ErrCatalog) {
		t.Fatalf("first fetch err = %v, want ErrCatalog", err)
	}
	defs, err := c.FetchTools(context.Background())
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "getWeather" {
		t.Errorf("defs = %+v", defs)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("hub hit %d times, want 2", n)
	}
}

func TestFetchToolsSkipsNamelessEntry(t *testing.T) {
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"type":"function","function":{"description":"broken"}},` + catalogJSON[1:]))
	})

	defs, err := c.FetchTools(context.Background())
	if err != nil {
		t.Fatalf("FetchTools: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "getWeather" {
		t.Errorf("defs = %+v", defs)
	}
}

func TestFetchToolsCallerCancelDoesNotFailOthers(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var once, releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(arrived) })
		<-release
		w.Write([]byte(catalogJSON))
	})

	defer unblock()

	ctx1, cancel1 := context.WithCancel(context.Background())
	err1 := make(chan error, 1)
	go func() {
		_, err := c.FetchTools(ctx1)
		err1 <- err
	}()
	<-arrived

	type result struct {
		defs []tools.Definition
		err  error
	}
	res2 := make(chan result, 1)
	go func() {
		defs, err := c.FetchTools(context.Background())
		res2 <- result{defs, err}
	}()
	// Give the second caller time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)

	cancel1()
	select {
	case err := <-err1:
		if !errors.Is(err, hub.ErrCatalog) || !strings.Contains(err.Error(), "context canceled") {
			t.Errorf("cancelled caller err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	unblock()
	select {
	case r := <-res2:
		if r.err != nil {
			t.Fatalf("live caller err = %v", r.err)
		}
		if len(r.defs) != 1 || r.defs[0].Name != "getWeather" {
			t.Errorf("live caller defs = %+v", r.defs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live caller did not return")
	}
}

func TestPerformSuccess(t *testing.T) {
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/hub/perform/getWeather" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("x-superface-user-id"); got != "tester|1" {
			t.Errorf("user id header = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		var args map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("{\n  \"city\": \"" + args["city"].(string) + "\",\n  \"temp\": 21\n}\n"))
	})

	res := c.Perform(context.Background(), "getWeather", map[string]interface{}{"city": "Prague"})
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Payload != `{"city":"Prague","temp":21}` {
		t.Errorf("Payload = %q", res.Payload)
	}
	if res.Name != "getWeather" {
		t.Errorf("Name = %q", res.Name)
	}
}

func TestPerformErrorBodyIsResult(t *testing.T) {
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"timeout"}`))
	})

	res := c.Perform(context.Background(), "getWeather", map[string]interface{}{"city": "Kosice"})
	if res.OK() {
		t.Fatal("expected a failed result")
	}
	if res.Err.Kind != tools.KindStatus || res.Err.StatusCode != http.StatusInternalServerError {
		t.Errorf("Err = %+v", res.Err)
	}
	if res.Content() != `{"error":"timeout"}` {
		t.Errorf("Content() = %q", res.Content())
	}
}

func TestPerformTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := hub.New(hub.Options{BaseURL: base, Timeout: time.Second})
	res := c.Perform(context.Background(), "getWeather", nil)
	if res.OK() || res.Err.Kind != tools.KindTransport {
		t.Fatalf("want transport error, got %+v", res)
	}
	if res.Payload != "" {
		t.Errorf("Payload = %q, want empty", res.Payload)
	}
}

func TestPerformIsDeterministic(t *testing.T) {
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write([]byte(`{"echo": ` + string(body) + `, "b": 2, "a": 1}`))
	})

	args := map[string]interface{}{"city": "Prague", "units": "metric"}
	first := c.Perform(context.Background(), "getWeather", args)
	second := c.Perform(context.Background(), "getWeather", args)
	if first.Payload != second.Payload {
		t.Errorf("results differ:\n%s\n%s", first.Payload, second.Payload)
	}
}

func TestPerformEscapesName(t *testing.T) {
	_, c := newHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/hub/perform/weather%2Fcurrent" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		w.Write([]byte(`{}`))
	})
	c.Perform(context.Background(), "weather/current", map[string]interface{}{})
}
