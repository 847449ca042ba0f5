package discovery

import (
	"context"
	"net/http"
	"sync/atomic"

	"hiddenParamsGo/internal/diff"
	"hiddenParamsGo/internal/requests"
)

// Observer receives progress events. Implementations must be safe for concurrent use.
type Observer interface {
	// Phase announces a new step of the run; total is -1 when unknown.
	Phase(name string, total int)
	Request()
	Found(name string)
}

type nopObserver struct{}

func (nopObserver) Phase(string, int) {}
func (nopObserver) Request()          {}
func (nopObserver) Found(string)      {}

// prober bounds the amount of in-flight requests and counts them.
type prober struct {
	sem      chan struct{}
	sent     atomic.Int64
	observer Observer
}

func newProber(concurrency int, observer Observer) *prober {
	if concurrency < 1 {
		concurrency = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &prober{sem: make(chan struct{}, concurrency), observer: observer}
}

// send waits for a free slot, then sends req. The request delay is spent inside the slot.
func (p *prober) send(ctx context.Context, req *requests.Request) (*requests.Response, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	resp, err := req.Send(ctx)
	if err != nil {
		return nil, err
	}
	p.sent.Add(1)
	p.observer.Request()
	return resp, nil
}

// evidence is what one response tells about the parameters it carried.
type evidence struct {
	status    bool
	code      int
	diffs     []string
	reflected []string
}

func (e evidence) meaningful() bool {
	return e.status || len(e.diffs) > 0 || len(e.reflected) > 0
}

func (e evidence) reasons() []Reason {
	var reasons []Reason
	if e.status {
		reasons = append(reasons, ReasonStatusCode)
	}
	if len(e.diffs) > 0 {
		reasons = append(reasons, ReasonBodyDiff)
	}
	if len(e.reflected) > 0 {
		reasons = append(reasons, ReasonReflected)
	}
	return reasons
}

// judge compares resp against known and keeps only the evidence the baseline trusts.
func judge(base *Baseline, resp *requests.Response, known diff.Known, reflectedOnly bool) evidence {
	statusChanged, fresh := base.Engine.Compare(resp, known)
	resp.FillReflectedParameters()

	ev := evidence{code: resp.Code}
	if !reflectedOnly {
		ev.status = statusChanged
		if base.Stable.Body {
			ev.diffs = fresh
		}
	}
	if base.Stable.Reflections {
		ev.reflected = echoed(base, resp)
	}
	return ev
}

// echoed drops header names that were only reflected by name while the
// reference response already carried them, such as a candidate "Content-Type".
func echoed(base *Baseline, resp *requests.Response) []string {
	if resp.Place != requests.Headers || base.Reference == nil || len(resp.ReflectedParameters) == 0 {
		return resp.ReflectedParameters
	}
	values := make(map[string]string, len(resp.Parameters))
	for _, p := range resp.Parameters {
		if p.RandomValue {
			values[p.Name] = p.Value
		}
	}
	var out []string
	for _, name := range resp.ReflectedParameters {
		if v, ok := values[name]; !ok || !resp.Mentions(v) {
			if base.Reference.Mentions(name) || base.Reference.Mentions(http.CanonicalHeaderKey(name)) {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}
