package discovery

import (
	"context"

	"golang.org/x/sync/errgroup"

	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/requests"
)

// VerifyOptions configures Verify.
type VerifyOptions struct {
	Concurrency   int
	ReflectedOnly bool
	Observer      Observer
}

// Verify sends every found parameter alone once more and keeps those that
// still differ from the baseline. Parameters found with a specific value are
// re-sent with that value. The order of params is preserved.
func Verify(ctx context.Context, defaults *requests.RequestDefaults, base *Baseline, params []FoundParameter, opts VerifyOptions) ([]FoundParameter, error) {
	return verify(ctx, defaults, base, params, opts.ReflectedOnly, newProber(opts.Concurrency, opts.Observer))
}

func verify(ctx context.Context, defaults *requests.RequestDefaults, base *Baseline, params []FoundParameter, reflectedOnly bool, p *prober) ([]FoundParameter, error) {
	log := logger.GetLogger()
	known := base.Noise.Snapshot()
	keep := make([]bool, len(params))

	g, ctx := errgroup.WithContext(ctx)
	for i, param := range params {
		i, param := i, param
		g.Go(func() error {
			resp, err := p.send(ctx, singleton(defaults, param))
			if err != nil {
				return err
			}
			ev := judge(base, resp, known, reflectedOnly)
			keep[i] = ev.meaningful()
			if !keep[i] {
				log.WithField("parameter", param.Name).Info("dropped after verification")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	verified := make([]FoundParameter, 0, len(params))
	for i, param := range params {
		if keep[i] {
			verified = append(verified, param)
		}
	}
	return verified, nil
}

func singleton(defaults *requests.RequestDefaults, param FoundParameter) *requests.Request {
	if param.Value != "" {
		return requests.NewWithParameters(defaults, []requests.Parameter{{Name: param.Name, Value: param.Value}})
	}
	return requests.New(defaults, []string{param.Name})
}
