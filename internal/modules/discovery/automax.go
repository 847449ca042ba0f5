package discovery

import (
	"context"

	"hiddenParamsGo/internal/core/logger"
	"hiddenParamsGo/internal/requests"
)

// autoMax tries the larger ceilings of the injection place and keeps the
// largest one the target still answers with the reference status code.
func autoMax(ctx context.Context, defaults *requests.RequestDefaults, base *Baseline, avoid func(string) bool, p *prober) (int, error) {
	log := logger.GetLogger()
	steps := defaults.InjectionPlace.MaxSteps()
	chosen := steps[0]
	for _, step := range steps[1:] {
		resp, err := p.send(ctx, requests.NewRandom(defaults, step, avoid))
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			log.Debugf("max %d: %v", step, err)
			break
		}
		if resp.Code != base.Engine.ReferenceCode {
			log.Debugf("max %d: status %d", step, resp.Code)
			break
		}
		chosen = step
	}
	return chosen, nil
}
