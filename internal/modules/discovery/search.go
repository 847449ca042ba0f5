package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/diff"
	"hiddenParamsGo/internal/requests"
)

// searcher holds the state shared by every probe of the discovery phases.
type searcher struct {
	defaults      *requests.RequestDefaults
	base          *Baseline
	prober        *prober
	max           int
	strict        bool
	reflectedOnly bool

	// attributed holds the signatures of parameters already found. Only used in strict mode.
	attributed *diff.Registry
	onFound    FoundHook

	mu    sync.Mutex
	found map[string]FoundParameter
	order []string
}

func newSearcher(defaults *requests.RequestDefaults, base *Baseline, p *prober, limit int, strict, reflectedOnly bool) *searcher {
	return &searcher{
		defaults:      defaults,
		base:          base,
		prober:        p,
		max:           limit,
		strict:        strict,
		reflectedOnly: reflectedOnly,
		attributed:    diff.NewRegistry(),
		found:         make(map[string]FoundParameter),
	}
}

func (s *searcher) known() diff.Known {
	if s.strict {
		return diff.Union(s.base.Noise, s.attributed)
	}
	return s.base.Noise
}

// chunk splits names into consecutive batches of at most size names.
func chunk(names []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	batches := make([][]string, 0, (len(names)+size-1)/size)
	for start := 0; start < len(names); start += size {
		end := start + size
		if end > len(names) {
			end = len(names)
		}
		batches = append(batches, names[start:end])
	}
	return batches
}

// sweep checks every batch of names. Batches run in parallel, bounded by the prober.
func (s *searcher) sweep(ctx context.Context, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, batch := range chunk(names, s.max) {
		batch := batch
		g.Go(func() error {
			return s.check(ctx, batch)
		})
	}
	return g.Wait()
}

// isCeilingStatus reports the codes servers use to reject too many parameters.
func isCeilingStatus(code int) bool {
	switch code {
	case http.StatusRequestEntityTooLarge, http.StatusRequestURITooLong, http.StatusRequestHeaderFieldsTooLarge:
		return true
	}
	return false
}

// check sends batch and bisects it while it keeps differing from the baseline.
// Both halves are always checked since more than one member may be influential.
func (s *searcher) check(ctx context.Context, batch []string) error {
	req := requests.New(s.defaults, batch)
	resp, err := s.prober.send(ctx, req)
	if err != nil {
		return err
	}
	if len(batch) > 1 && isCeilingStatus(resp.Code) && resp.Code != s.base.Engine.ReferenceCode {
		return fmt.Errorf("%w: %d parameters answered with %d, try a lower max", core.ErrTooManyParameters, len(batch), resp.Code)
	}

	ev := judge(s.base, resp, s.known(), s.reflectedOnly)
	if !ev.meaningful() {
		return nil
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"batch":  len(batch),
		"status": resp.Code,
		"diffs":  len(ev.diffs),
	}).Debug("batch differs")

	if len(batch) == 1 {
		s.record(batch[0], "", ev, req, resp)
		return nil
	}

	mid := len(batch) / 2
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.check(ctx, batch[:mid]) })
	g.Go(func() error { return s.check(ctx, batch[mid:]) })
	return g.Wait()
}

// record adds a found parameter unless the name is known already. It reports whether it was added.
// req and resp are the exchange that isolated the parameter.
func (s *searcher) record(name, value string, ev evidence, req *requests.Request, resp *requests.Response, extra ...Reason) bool {
	s.mu.Lock()
	if _, ok := s.found[name]; ok {
		s.mu.Unlock()
		return false
	}
	p := FoundParameter{
		Name:    name,
		Value:   value,
		Reasons: append(ev.reasons(), extra...),
		Status:  ev.code,
		Diffs:   ev.diffs,
	}
	s.found[name] = p
	s.order = append(s.order, name)
	s.mu.Unlock()

	if s.strict {
		s.attributed.Add(ev.diffs...)
	}
	logger.GetLogger().WithField("parameter", name).Infof("found: %s", p.ReasonString())
	s.prober.observer.Found(name)
	if s.onFound != nil {
		s.onFound(p, req, resp)
	}
	return true
}

func (s *searcher) isFound(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.found[name]
	return ok
}

// results returns the found parameters in discovery order.
func (s *searcher) results() []FoundParameter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FoundParameter, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.found[name])
	}
	return out
}
