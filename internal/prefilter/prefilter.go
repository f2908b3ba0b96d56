package prefilter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"fuzzyjoin/internal/fuzz"
)

// Candidate is a left/right pair whose token-set score cleared the threshold.
type Candidate struct {
	Left  int // index within the chunk
	Right int // index into the right collection
	Title int // distinct right title id
	Score float64
}

// Prefilter scores chunks of left titles against an Index.
type Prefilter struct {
	index     *Index
	threshold float64
	workers   int
}

// New returns a Prefilter. workers <= 0 uses one worker per CPU.
func New(index *Index, threshold float64, workers int) *Prefilter {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Prefilter{index: index, threshold: threshold, workers: workers}
}

// Workers reports the configured parallelism.
func (p *Prefilter) Workers() int { return p.workers }

// Candidates returns every pair of chunk title and right row with a non-zero
// token-set score at or above the threshold. Results are grouped by left
// title in chunk order; within a left title, right rows follow distinct-title
// order.
func (p *Prefilter) Candidates(ctx context.Context, chunk []fuzz.Tokens) ([]Candidate, error) {
	if len(chunk) == 0 || p.index.Distinct() == 0 {
		return nil, nil
	}
	workers := min(p.workers, len(chunk))
	span := (len(chunk) + workers - 1) / workers
	parts := make([][]Candidate, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * span
		end := min(start+span, len(chunk))
		if start >= end {
			continue
		}
		g.Go(func() error {
			out, err := p.scan(ctx, chunk, start, end)
			if err != nil {
				return err
			}
			parts[w] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	out := make([]Candidate, 0, total)
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

func (p *Prefilter) scan(ctx context.Context, chunk []fuzz.Tokens, start, end int) ([]Candidate, error) {
	var out []Candidate
	for left := start; left < end; left++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		title := chunk[left]
		if len(title.Set) == 0 {
			continue
		}
		for id := range p.index.titles {
			score := fuzz.TokenSetRatioTokens(title, p.index.titles[id], p.threshold)
			if score <= 0 || score < p.threshold {
				continue
			}
			for _, right := range p.index.rows[id] {
				out = append(out, Candidate{Left: left, Right: right, Title: id, Score: score})
			}
		}
	}
	return out, nil
}
