// internal/modules/discovery/engine.go
package discovery

import (
	"context"
	"time"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/requests"
)

// Phase names reported to the Observer.
const (
	PhaseLearning = "learning"
	PhaseSweep    = "discovery"
	PhaseCustom   = "custom values"
	PhaseVerify   = "verification"
	PhaseReplay   = "replay"
)

// Options configures a discovery run.
type Options struct {
	LearnRequests int
	// Max is the amount of parameters per request; 0 picks it from the injection place.
	Max         int
	Concurrency int

	Force         bool
	Strict        bool
	Verify        bool
	ReflectedOnly bool

	// CustomParameters maps names to the values they are tried with. Empty disables the pass.
	CustomParameters map[string][]string

	ExtractFormParams bool

	// ReplayClient, when set, receives the found parameters at the end of the run.
	ReplayClient requests.Doer
	ReplayOnce   bool

	Observer Observer

	// OnFound is called once per parameter with the exchange that isolated it.
	// It may be called from several goroutines at once.
	OnFound FoundHook
}

// Result is the outcome of a run.
type Result struct {
	URL        string           `json:"url"`
	Method     string           `json:"method"`
	Place      string           `json:"injection_place"`
	Max        int              `json:"max"`
	Stable     Stable           `json:"stable"`
	Parameters []FoundParameter `json:"parameters"`
	// Requests counts every request sent, learning included.
	Requests int64 `json:"requests"`
	// SearchRequests counts the batch sweep and its bisection only.
	SearchRequests int64         `json:"search_requests"`
	Noise          int           `json:"noise_signatures"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Run learns the target, sweeps the wordlist, tries the custom values,
// optionally verifies and replays the findings.
func Run(ctx context.Context, defaults *requests.RequestDefaults, wordlist []string, opts Options) (*Result, error) {
	log := logger.GetLogger()
	start := time.Now()

	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	p := newProber(opts.Concurrency, observer)

	wordlist = core.RemoveDuplicates(wordlist)
	if len(wordlist) == 0 && len(opts.CustomParameters) == 0 {
		return nil, core.ErrEmptyWordlist
	}

	candidates := make(map[string]struct{}, len(wordlist)+len(opts.CustomParameters))
	for _, w := range wordlist {
		candidates[w] = struct{}{}
	}
	for name := range opts.CustomParameters {
		candidates[name] = struct{}{}
	}
	avoid := func(name string) bool {
		_, ok := candidates[name]
		return ok
	}

	limit := opts.Max
	if limit < 1 {
		limit = defaults.InjectionPlace.DefaultMax()
	}

	observer.Phase(PhaseLearning, opts.LearnRequests+1)
	base, err := learn(ctx, defaults, LearnOptions{
		Count:  opts.LearnRequests,
		Max:    limit,
		Force:  opts.Force,
		Strict: opts.Strict,
		Avoid:  avoid,
	}, p)
	if err != nil {
		return nil, err
	}

	result := &Result{
		URL:    defaults.URL,
		Method: defaults.Method,
		Place:  defaults.InjectionPlace.String(),
		Stable: base.Stable,
		Noise:  base.Noise.Len(),
	}
	finish := func() *Result {
		result.Requests = p.sent.Load()
		result.Elapsed = time.Since(start)
		return result
	}

	if opts.ExtractFormParams {
		extra := ExtractFormParameters(base.Reference.Body)
		added := 0
		for _, name := range extra {
			if _, ok := candidates[name]; ok {
				continue
			}
			candidates[name] = struct{}{}
			wordlist = append(wordlist, name)
			added++
		}
		log.Infof("%d parameters added from page forms", added)
	}

	if opts.Max < 1 {
		if limit, err = autoMax(ctx, defaults, base, avoid, p); err != nil {
			return nil, err
		}
	}
	result.Max = limit
	log.WithField("max", limit).Infof("%d candidates, %d noise signatures", len(wordlist), base.Noise.Len())

	if opts.ReflectedOnly && !base.Stable.Reflections {
		log.Warn("reflections are not trusted on this page, nothing to look for")
		return finish(), nil
	}

	s := newSearcher(defaults, base, p, limit, opts.Strict, opts.ReflectedOnly)
	s.onFound = opts.OnFound

	before := p.sent.Load()
	observer.Phase(PhaseSweep, (len(wordlist)+limit-1)/limit)
	if err := s.sweep(ctx, wordlist); err != nil {
		return nil, err
	}
	result.SearchRequests = p.sent.Load() - before

	if len(opts.CustomParameters) > 0 {
		total := 0
		for _, values := range opts.CustomParameters {
			total += len(values)
		}
		observer.Phase(PhaseCustom, total)
		if err := s.customPass(ctx, opts.CustomParameters); err != nil {
			return nil, err
		}
	}

	found := s.results()
	if opts.Verify && len(found) > 0 {
		observer.Phase(PhaseVerify, len(found))
		if found, err = verify(ctx, defaults, base, found, opts.ReflectedOnly, p); err != nil {
			return nil, err
		}
	}
	SortByName(found)
	result.Parameters = found

	if opts.ReplayClient != nil && len(found) > 0 {
		observer.Phase(PhaseReplay, -1)
		if err := Replay(ctx, defaults, opts.ReplayClient, found, opts.ReplayOnce); err != nil {
			log.Warnf("replay failed: %v", err)
		}
	}

	return finish(), nil
}
