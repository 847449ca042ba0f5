package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/network"
	"hiddenParamsGo/internal/requests"
)

// target is a synthetic server deciding the response from the query string.
type target struct {
	*httptest.Server
	hits atomic.Int64
}

func newTarget(t *testing.T, respond func(q url.Values) (int, string)) *target {
	t.Helper()
	tg := &target{}
	tg.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tg.hits.Add(1)
		code, body := respond(r.URL.Query())
		w.WriteHeader(code)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(tg.Close)
	return tg
}

func defaultsFor(t *testing.T, rawURL string) *requests.RequestDefaults {
	t.Helper()
	client, err := network.NewClient(network.Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient returned an error: %v", err)
	}
	d, err := requests.NewRequestDefaults(requests.RequestDefaults{URL: rawURL, Client: client}, nil)
	if err != nil {
		t.Fatalf("NewRequestDefaults returned an error: %v", err)
	}
	return d
}

func assertNames(t *testing.T, got []FoundParameter, want ...string) {
	t.Helper()
	names := Names(got)
	sort.Strings(names)
	sort.Strings(want)
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, names)
	}
}

func TestRun_IsolatesSingleParameter(t *testing.T) {
	wordlist := []string{"a", "b", "c", "d"}
	var searchHits atomic.Int64
	tg := newTarget(t, func(q url.Values) (int, string) {
		for _, name := range wordlist {
			if q.Has(name) {
				searchHits.Add(1)
				break
			}
		}
		if q.Has("c") {
			return http.StatusOK, "ok\nsecret"
		}
		return http.StatusOK, "ok"
	})

	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), wordlist, Options{
		LearnRequests: 2,
		Max:           2,
		Concurrency:   1,
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "c")
	if result.SearchRequests != 4 {
		t.Errorf("Expected 4 search requests, got %d", result.SearchRequests)
	}
	if n := searchHits.Load(); n != 4 {
		t.Errorf("Expected the target to see 4 candidate requests, got %d", n)
	}
	if !result.Parameters[0].HasReason(ReasonBodyDiff) {
		t.Errorf("Expected body-diff evidence, got %v", result.Parameters[0].Reasons)
	}
	if result.Requests != 3+4 {
		t.Errorf("Expected 7 requests in total, got %d", result.Requests)
	}
}

func TestRun_PlantedSubset(t *testing.T) {
	var wordlist []string
	for i := 0; i < 100; i++ {
		wordlist = append(wordlist, fmt.Sprintf("p%d", i))
	}
	planted := map[string]bool{"p7": true, "p42": true, "p77": true}

	var mu sync.Mutex
	seen := map[string]bool{}
	tg := newTarget(t, func(q url.Values) (int, string) {
		var lines []string
		mu.Lock()
		for name := range q {
			if strings.HasPrefix(name, "p") {
				seen[name] = true
			}
		}
		mu.Unlock()
		for _, name := range wordlist {
			if planted[name] && q.Has(name) {
				lines = append(lines, "hit "+name)
			}
		}
		return http.StatusOK, "page\n" + strings.Join(lines, "\n")
	})

	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), wordlist, Options{
		LearnRequests: 3,
		Max:           16,
		Concurrency:   4,
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "p7", "p42", "p77")

	// 7 batches, plus two probes per level of the 16 -> 1 bisection for each hit
	if limit := int64(7 + 3*2*4); result.SearchRequests > limit {
		t.Errorf("Expected at most %d search requests, got %d", limit, result.SearchRequests)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, name := range wordlist {
		if !seen[name] {
			t.Errorf("Candidate %s was never sent", name)
		}
	}
}

func TestRun_CustomValue(t *testing.T) {
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Get("debug") == "true" {
			return http.StatusOK, "welcome\ndebug mode"
		}
		return http.StatusOK, "welcome"
	})

	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"debug", "page", "id"}, Options{
		LearnRequests:    2,
		Max:              4,
		CustomParameters: BuildCustomTable([]string{"debug", "admin"}, []string{"1", "xyz123", "true", "yes"}),
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "debug")
	found := result.Parameters[0]
	if found.Value != "true" {
		t.Errorf("Expected value true, got %q", found.Value)
	}
	if !found.HasReason(ReasonValueSpecific) {
		t.Errorf("Expected value-specific evidence, got %v", found.Reasons)
	}
	if result.SearchRequests != 1 {
		t.Errorf("Expected the sweep to miss debug with a single request, got %d", result.SearchRequests)
	}
}

func TestRun_CustomSkipsFoundNames(t *testing.T) {
	var customHits atomic.Int64
	tg := newTarget(t, func(q url.Values) (int, string) {
		if v := q.Get("admin"); v == "1" || v == "true" {
			customHits.Add(1)
		}
		if q.Has("admin") {
			return http.StatusForbidden, "denied"
		}
		return http.StatusOK, "ok"
	})

	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"admin"}, Options{
		LearnRequests:    1,
		Max:              4,
		CustomParameters: BuildCustomTable([]string{"admin"}, []string{"1", "true"}),
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "admin")
	if result.Parameters[0].HasReason(ReasonValueSpecific) {
		t.Errorf("Expected the sweep result to be kept, got %v", result.Parameters[0].Reasons)
	}
	if !result.Parameters[0].HasReason(ReasonStatusCode) {
		t.Errorf("Expected status-code evidence, got %v", result.Parameters[0].Reasons)
	}
	if n := customHits.Load(); n != 0 {
		t.Errorf("Expected no custom probes for a found name, got %d", n)
	}
}

func TestRun_Reflection(t *testing.T) {
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Has("admin") {
			return http.StatusForbidden, "hello " + q.Get("q")
		}
		return http.StatusOK, "hello " + q.Get("q")
	})
	wordlist := []string{"admin", "q", "x", "y"}

	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), wordlist, Options{LearnRequests: 2, Max: 4})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "admin", "q")
	for _, p := range result.Parameters {
		if p.Name == "q" && (len(p.Reasons) != 1 || p.Reasons[0] != ReasonReflected) {
			t.Errorf("Expected q to be flagged by reflection only, got %v", p.Reasons)
		}
	}

	result, err = Run(context.Background(), defaultsFor(t, tg.URL+"/"), wordlist, Options{LearnRequests: 2, Max: 4, ReflectedOnly: true})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "q")
}

func TestRun_ReflectedOnlyOnEchoingPage(t *testing.T) {
	tg := newTarget(t, func(q url.Values) (int, string) {
		return http.StatusOK, q.Encode()
	})
	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"a", "b"}, Options{
		LearnRequests: 2,
		Max:           2,
		ReflectedOnly: true,
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if result.Stable.Reflections {
		t.Errorf("Expected reflections to be untrusted")
	}
	if len(result.Parameters) != 0 || result.SearchRequests != 0 {
		t.Errorf("Expected no search, got %v after %d requests", result.Parameters, result.SearchRequests)
	}
}

func TestRun_TooManyParameters(t *testing.T) {
	var wordlist []string
	for i := 0; i < 4; i++ {
		wordlist = append(wordlist, fmt.Sprintf("%s%d", strings.Repeat("long", 15), i))
	}
	tg := newTarget(t, func(q url.Values) (int, string) {
		if len(q.Encode()) > 200 {
			return http.StatusRequestURITooLong, "too long"
		}
		return http.StatusOK, "ok"
	})

	_, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), wordlist, Options{LearnRequests: 2, Max: 4})
	if !errors.Is(err, core.ErrTooManyParameters) {
		t.Errorf("Expected ErrTooManyParameters, got %v", err)
	}
}

func TestRun_NetworkErrorPropagates(t *testing.T) {
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Has("boom") {
			panic(http.ErrAbortHandler)
		}
		return http.StatusOK, "ok"
	})
	_, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"a", "boom", "c"}, Options{LearnRequests: 1, Max: 2})
	if !errors.Is(err, core.ErrNetworkError) {
		t.Errorf("Expected ErrNetworkError, got %v", err)
	}
}

func TestRun_EmptyWordlist(t *testing.T) {
	tg := newTarget(t, func(url.Values) (int, string) { return http.StatusOK, "ok" })
	_, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), nil, Options{})
	if !errors.Is(err, core.ErrEmptyWordlist) {
		t.Errorf("Expected ErrEmptyWordlist, got %v", err)
	}
	if n := tg.hits.Load(); n != 0 {
		t.Errorf("Expected no requests, got %d", n)
	}
}

func TestRun_AutoMax(t *testing.T) {
	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{"capped", 150, 128},
		{"middle", 200, 192},
		{"unlimited", 1 << 20, 256},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tg := newTarget(t, func(q url.Values) (int, string) {
				if len(q) > tc.limit {
					return http.StatusRequestURITooLong, "too many"
				}
				return http.StatusOK, "ok"
			})
			result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"a"}, Options{LearnRequests: 1})
			if err != nil {
				t.Fatalf("Run returned an error: %v", err)
			}
			if result.Max != tc.want {
				t.Errorf("Expected max %d, got %d", tc.want, result.Max)
			}
		})
	}
}

func TestRun_ExtractFormParams(t *testing.T) {
	page := `<html><form><input name="token"><input name="hidden_admin" type="hidden"></form></html>`
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Has("hidden_admin") {
			return http.StatusOK, page + "\nadmin"
		}
		return http.StatusOK, page
	})
	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"a", "token"}, Options{
		LearnRequests:     1,
		Max:               8,
		ExtractFormParams: true,
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "hidden_admin")
}

type countingObserver struct {
	requests atomic.Int64
	found    atomic.Int64
	mu       sync.Mutex
	phases   []string
}

func (o *countingObserver) Phase(name string, total int) {
	o.mu.Lock()
	o.phases = append(o.phases, name)
	o.mu.Unlock()
}
func (o *countingObserver) Request()     { o.requests.Add(1) }
func (o *countingObserver) Found(string) { o.found.Add(1) }

func TestRun_ObserverAndVerify(t *testing.T) {
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Has("id") {
			return http.StatusNotFound, "missing"
		}
		return http.StatusOK, "ok"
	})
	obs := &countingObserver{}
	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"a", "b", "id"}, Options{
		LearnRequests: 1,
		Max:           4,
		Verify:        true,
		Observer:      obs,
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "id")
	if obs.requests.Load() != result.Requests {
		t.Errorf("Observer saw %d requests, result says %d", obs.requests.Load(), result.Requests)
	}
	if obs.found.Load() != 1 {
		t.Errorf("Expected 1 found event, got %d", obs.found.Load())
	}
	want := []string{PhaseLearning, PhaseSweep, PhaseVerify}
	if strings.Join(obs.phases, ",") != strings.Join(want, ",") {
		t.Errorf("Expected phases %v, got %v", want, obs.phases)
	}
}

func TestRun_SpecialCharactersInNames(t *testing.T) {
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Has("c") {
			return http.StatusOK, "ok\nsecret"
		}
		return http.StatusOK, "ok"
	})
	d := defaultsFor(t, tg.URL+"/")

	result, err := Run(context.Background(), d, []string{"a", "x#y", "c", "d"}, Options{LearnRequests: 1, Max: 4})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "c")

	result, err = Run(context.Background(), d, []string{"a", "user name", `say"hi`, "50%+1", "d"}, Options{LearnRequests: 1, Max: 8})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters)
	if result.SearchRequests != 1 {
		t.Errorf("Expected a single clean batch, got %d requests", result.SearchRequests)
	}
}

func TestRun_StrictIgnoresHeaderOnlyChanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Has("b") || q.Has("c") {
			w.Header().Set("X-Feature", "on")
		}
		if q.Has("c") {
			fmt.Fprint(w, "page\nfeature panel\n")
			return
		}
		fmt.Fprint(w, "page\n")
	}))
	defer server.Close()

	for _, strict := range []bool{false, true} {
		result, err := Run(context.Background(), defaultsFor(t, server.URL+"/"), []string{"a", "b", "c", "d"}, Options{
			LearnRequests: 1,
			Max:           4,
			Strict:        strict,
		})
		if err != nil {
			t.Fatalf("strict=%v: Run returned an error: %v", strict, err)
		}
		assertNames(t, result.Parameters, "c")
	}
}

func TestRun_SaveResponses(t *testing.T) {
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Get("debug") == "true" {
			return http.StatusOK, "ok\ndebug panel"
		}
		if q.Has("admin") {
			return http.StatusForbidden, "denied"
		}
		return http.StatusOK, "ok"
	})
	dir := filepath.Join(t.TempDir(), "responses")
	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"a", "admin"}, Options{
		LearnRequests:    1,
		Max:              4,
		CustomParameters: map[string][]string{"debug": {"true"}},
		OnFound:          SaveResponses(dir),
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "admin", "debug")

	data, err := os.ReadFile(filepath.Join(dir, "admin.txt"))
	if err != nil {
		t.Fatalf("Expected the admin exchange to be saved: %v", err)
	}
	saved := string(data)
	for _, want := range []string{"GET /?admin=", "HTTP/1.1 403 Forbidden\r\n", "denied"} {
		if !strings.Contains(saved, want) {
			t.Errorf("Expected %q in saved exchange:\n%s", want, saved)
		}
	}
	data, err = os.ReadFile(filepath.Join(dir, "debug.txt"))
	if err != nil {
		t.Fatalf("Expected the debug exchange to be saved: %v", err)
	}
	if !strings.Contains(string(data), "GET /?debug=true") || !strings.Contains(string(data), "debug panel") {
		t.Errorf("Unexpected saved exchange:\n%s", data)
	}
}

func TestSaveResponses_WriteFailureIsNotFatal(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	tg := newTarget(t, func(q url.Values) (int, string) {
		if q.Has("admin") {
			return http.StatusForbidden, "denied"
		}
		return http.StatusOK, "ok"
	})
	result, err := Run(context.Background(), defaultsFor(t, tg.URL+"/"), []string{"admin"}, Options{
		LearnRequests: 1,
		Max:           4,
		OnFound:       SaveResponses(filepath.Join(blocker, "responses")),
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "admin")
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"admin":      "admin",
		"../etc":     "___etc",
		"user[name]": "user_name_",
		"":           "_",
	}
	for in, want := range cases {
		if got := fileName(in); got != want {
			t.Errorf("fileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRun_HeaderNameReflection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Server-Timing is enabled\n")
		if r.Header.Get("X-Debug-Mode") != "" {
			fmt.Fprint(w, "ignored header X-Debug-Mode\n")
		}
	}))
	defer server.Close()

	client, err := network.NewClient(network.Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient returned an error: %v", err)
	}
	d, err := requests.NewRequestDefaults(requests.RequestDefaults{
		URL:            server.URL + "/",
		InjectionPlace: requests.Headers,
		Client:         client,
	}, nil)
	if err != nil {
		t.Fatalf("NewRequestDefaults returned an error: %v", err)
	}
	result, err := Run(context.Background(), d, []string{"x-debug-mode", "Server-Timing", "X-Other"}, Options{
		LearnRequests: 1,
		Max:           4,
		ReflectedOnly: true,
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	assertNames(t, result.Parameters, "x-debug-mode")
	if !result.Parameters[0].HasReason(ReasonReflected) {
		t.Errorf("Expected reflection evidence, got %v", result.Parameters[0].Reasons)
	}
}
