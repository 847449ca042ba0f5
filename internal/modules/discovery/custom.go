package discovery

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"hiddenParamsGo/internal/requests"
)

// BuildCustomTable pairs every name with the same list of values.
func BuildCustomTable(names, values []string) map[string][]string {
	table := make(map[string][]string, len(names))
	for _, name := range names {
		table[name] = append([]string(nil), values...)
	}
	return table
}

// customPass sends every (name, value) pair as its own probe. Names found
// earlier are skipped and the values of a name stop at the first hit.
func (s *searcher) customPass(ctx context.Context, table map[string][]string) error {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		values := table[name]
		g.Go(func() error {
			for _, value := range values {
				if s.isFound(name) {
					return nil
				}
				req := requests.NewWithParameters(s.defaults, []requests.Parameter{{Name: name, Value: value}})
				resp, err := s.prober.send(ctx, req)
				if err != nil {
					return err
				}
				ev := judge(s.base, resp, s.known(), s.reflectedOnly)
				if ev.meaningful() {
					s.record(name, value, ev, req, resp, ReasonValueSpecific)
					return nil
				}
			}
			return nil
		})
	}
	return g.Wait()
}
