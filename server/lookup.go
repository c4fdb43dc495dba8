package server

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLookupConcurrency bounds the concurrent cache lookups of one batch.
const DefaultLookupConcurrency = 8

// parallelThreshold is the smallest number of distinct texts worth looking
// up concurrently.
const parallelThreshold = 5

// lookupAll returns the cached translations of texts, keyed by text. With
// a remote cache each lookup is a round trip, so larger batches are looked
// up concurrently.
func (s *Service) lookupAll(ctx context.Context, texts []string, source, target string) map[string]string {
	hits := make(map[string]string)
	if s.cache == nil || len(texts) == 0 {
		return hits
	}

	if s.concurrency < 2 || len(texts) < parallelThreshold {
		for _, text := range texts {
			if v, ok := s.lookup(text, source, target); ok {
				hits[text] = v
			}
		}
		return hits
	}

	type result struct {
		value string
		found bool
	}
	results := make([]result, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			// Treat the rest as misses once the request is gone.
			if gctx.Err() != nil {
				return nil
			}
			v, ok := s.lookup(text, source, target)
			results[i] = result{value: v, found: ok}
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		if r.found {
			hits[texts[i]] = r.value
		}
	}
	return hits
}
