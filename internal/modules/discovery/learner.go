package discovery

import (
	"context"
	"fmt"

	"hiddenParamsGo/internal/core"
	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/diff"
	"hiddenParamsGo/internal/requests"
)

// Baseline is what learning found out about the target.
type Baseline struct {
	Engine    *diff.Engine
	Noise     *diff.Registry
	Stable    Stable
	Reference *requests.Response
}

// LearnOptions configures Learn.
type LearnOptions struct {
	Count int
	Max   int
	Force bool
	// Strict makes the engine diff response headers as well.
	Strict bool
	// Avoid rejects generated names, normally the wordlist members.
	Avoid func(string) bool
}

// Learn sends Count probes filled with Max random parameters one after another,
// collecting every body variation as noise, then one more probe to decide
// whether the body is stable. The first probe becomes the reference response.
func Learn(ctx context.Context, defaults *requests.RequestDefaults, opts LearnOptions) (*Baseline, error) {
	return learn(ctx, defaults, opts, newProber(1, nil))
}

func learn(ctx context.Context, defaults *requests.RequestDefaults, opts LearnOptions, p *prober) (*Baseline, error) {
	log := logger.GetLogger()
	if opts.Count < 1 {
		opts.Count = 1
	}
	if opts.Max < 1 {
		opts.Max = defaults.InjectionPlace.DefaultMax()
	}

	base := &Baseline{
		Noise:  diff.NewRegistry(),
		Stable: Stable{Body: true, Reflections: true},
	}

	for i := 0; i < opts.Count; i++ {
		resp, err := p.send(ctx, requests.NewRandom(defaults, opts.Max, opts.Avoid))
		if err != nil {
			return nil, fmt.Errorf("learning request %d: %w", i+1, err)
		}
		if len(resp.Body) > requests.MaxPageSize && !opts.Force {
			return nil, core.ErrPageTooHuge
		}

		resp.FillReflectedParameters()
		if len(resp.ReflectedParameters) > 0 && base.Stable.Reflections {
			log.Debugf("random parameters reflected: %v", resp.ReflectedParameters)
			base.Stable.Reflections = false
		}

		if base.Engine == nil {
			base.Reference = resp
			base.Engine = diff.NewEngine(resp, opts.Strict)
			continue
		}

		if resp.Code != base.Engine.ReferenceCode {
			return nil, fmt.Errorf("%w: %d then %d", core.ErrUnstableCode, base.Engine.ReferenceCode, resp.Code)
		}
		if added := base.Noise.Add(base.Engine.Unknown(resp, base.Noise)...); added > 0 {
			log.WithField("request", i+1).Debugf("%d noise signatures learned", added)
		}
	}

	resp, err := p.send(ctx, requests.NewRandom(defaults, opts.Max, opts.Avoid))
	if err != nil {
		return nil, fmt.Errorf("stability check: %w", err)
	}
	statusChanged, fresh := base.Engine.Compare(resp, base.Noise)
	if statusChanged {
		return nil, fmt.Errorf("%w: %d then %d", core.ErrUnstableCode, base.Engine.ReferenceCode, resp.Code)
	}
	if len(fresh) > 0 {
		log.Warn("the page is not stable (body)")
		base.Stable.Body = false
	}
	if !base.Stable.Reflections {
		log.Warn("the page reflects unknown parameters")
	}
	return base, nil
}
