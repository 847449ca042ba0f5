package discovery

import (
	"context"
	"fmt"

	"hiddenParamsGo/internal/requests"
)

// Replay re-sends the found parameters through another client, usually bound
// to an intercepting proxy. A plain request goes first so the proxy session
// picks up cookies. With once set every parameter travels in a single request.
func Replay(ctx context.Context, defaults *requests.RequestDefaults, client requests.Doer, params []FoundParameter, once bool) error {
	if _, err := requests.NewWithParameters(defaults, nil).SendBy(ctx, client); err != nil {
		return fmt.Errorf("replay seed request: %w", err)
	}

	if once {
		pairs := make([]requests.Parameter, 0, len(params))
		for _, p := range params {
			pairs = append(pairs, replayParameter(p))
		}
		if _, err := requests.NewWithParameters(defaults, pairs).SendBy(ctx, client); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		return nil
	}

	for _, p := range params {
		req := requests.NewWithParameters(defaults, []requests.Parameter{replayParameter(p)})
		if _, err := req.SendBy(ctx, client); err != nil {
			return fmt.Errorf("replay %s: %w", p.Name, err)
		}
	}
	return nil
}

func replayParameter(p FoundParameter) requests.Parameter {
	if p.Value != "" {
		return requests.Parameter{Name: p.Name, Value: p.Value}
	}
	return requests.Parameter{Name: p.Name, Value: requests.RandomToken(requests.ValueLength), RandomValue: true}
}
