package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/requests"
)

func TestLearn_FixedBodyIsStable(t *testing.T) {
	tg := newTarget(t, func(url.Values) (int, string) {
		return http.StatusOK, "<html>static</html>"
	})
	base, err := Learn(context.Background(), defaultsFor(t, tg.URL+"/"), LearnOptions{Count: 4, Max: 8})
	if err != nil {
		t.Fatalf("Learn returned an error: %v", err)
	}
	if !base.Stable.Body || !base.Stable.Reflections {
		t.Errorf("Expected a stable page, got %+v", base.Stable)
	}
	if base.Noise.Len() != 0 {
		t.Errorf("Expected no noise, got %v", base.Noise.List())
	}
	if n := tg.hits.Load(); n != 5 {
		t.Errorf("Expected 5 requests, got %d", n)
	}
}

func TestLearn_CounterIsUnstable(t *testing.T) {
	var counter atomic.Int64
	tg := newTarget(t, func(url.Values) (int, string) {
		return http.StatusOK, fmt.Sprintf("<html>\nvisits=%d\n</html>", counter.Add(1))
	})
	base, err := Learn(context.Background(), defaultsFor(t, tg.URL+"/"), LearnOptions{Count: 3, Max: 8})
	if err != nil {
		t.Fatalf("Learn returned an error: %v", err)
	}
	if base.Stable.Body {
		t.Errorf("Expected the body to be unstable")
	}
	if base.Noise.Len() == 0 {
		t.Errorf("Expected the counter to be learned as noise")
	}
}

func TestLearn_NoiseIsAbsorbed(t *testing.T) {
	var counter atomic.Int64
	tg := newTarget(t, func(url.Values) (int, string) {
		n := counter.Add(1)
		return http.StatusOK, fmt.Sprintf("<html>\nad=%d\n</html>", n%2)
	})
	base, err := Learn(context.Background(), defaultsFor(t, tg.URL+"/"), LearnOptions{Count: 4, Max: 8})
	if err != nil {
		t.Fatalf("Learn returned an error: %v", err)
	}
	if !base.Stable.Body {
		t.Errorf("Expected alternating noise to be learned, got unstable body with %v", base.Noise.List())
	}
}

func TestLearn_UnstableCode(t *testing.T) {
	var counter atomic.Int64
	tg := newTarget(t, func(url.Values) (int, string) {
		if counter.Add(1)%2 == 0 {
			return http.StatusInternalServerError, "oops"
		}
		return http.StatusOK, "ok"
	})
	_, err := Learn(context.Background(), defaultsFor(t, tg.URL+"/"), LearnOptions{Count: 3, Max: 8})
	if !errors.Is(err, core.ErrUnstableCode) {
		t.Fatalf("Expected ErrUnstableCode, got %v", err)
	}
	if n := tg.hits.Load(); n != 2 {
		t.Errorf("Expected learning to stop after 2 requests, got %d", n)
	}
}

func TestLearn_PageTooHuge(t *testing.T) {
	huge := strings.Repeat("a", requests.MaxPageSize+1)
	tg := newTarget(t, func(url.Values) (int, string) {
		return http.StatusOK, huge
	})
	d := defaultsFor(t, tg.URL+"/")
	if _, err := Learn(context.Background(), d, LearnOptions{Count: 2, Max: 4}); !errors.Is(err, core.ErrPageTooHuge) {
		t.Errorf("Expected ErrPageTooHuge, got %v", err)
	}

	forced := *d
	forced.Force = true
	if _, err := Learn(context.Background(), &forced, LearnOptions{Count: 1, Max: 4, Force: true}); err != nil {
		t.Errorf("Expected force to accept the page, got %v", err)
	}
}

func TestLearn_Reflections(t *testing.T) {
	tg := newTarget(t, func(url.Values) (int, string) {
		return http.StatusOK, "ok"
	})
	base, err := Learn(context.Background(), defaultsFor(t, tg.URL+"/"), LearnOptions{Count: 2, Max: 4})
	if err != nil {
		t.Fatalf("Learn returned an error: %v", err)
	}
	if !base.Stable.Reflections {
		t.Errorf("Expected reflections to be trusted")
	}

	echo := newTarget(t, func(q url.Values) (int, string) {
		return http.StatusOK, "you sent " + q.Encode()
	})
	base, err = Learn(context.Background(), defaultsFor(t, echo.URL+"/"), LearnOptions{Count: 2, Max: 4})
	if err != nil {
		t.Fatalf("Learn returned an error: %v", err)
	}
	if base.Stable.Reflections {
		t.Errorf("Expected reflections to be untrusted on an echoing page")
	}
}

func TestLearn_AvoidsWordlist(t *testing.T) {
	var sent atomic.Int64
	tg := newTarget(t, func(q url.Values) (int, string) {
		sent.Add(int64(len(q)))
		return http.StatusOK, "ok"
	})
	calls := atomic.Int64{}
	avoid := func(name string) bool {
		calls.Add(1)
		return false
	}
	if _, err := Learn(context.Background(), defaultsFor(t, tg.URL+"/"), LearnOptions{Count: 2, Max: 5, Avoid: avoid}); err != nil {
		t.Fatalf("Learn returned an error: %v", err)
	}
	if calls.Load() < 15 {
		t.Errorf("Expected every generated name to be checked, got %d calls", calls.Load())
	}
	if sent.Load() != 15 {
		t.Errorf("Expected 15 random parameters, got %d", sent.Load())
	}
}
