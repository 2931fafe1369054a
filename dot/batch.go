package dot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pfcm/fp8/flo"
)

// Job is one dot product for RunBatch.
type Job struct {
	Name string
	A, B []flo.E4M3
}

// RunBatch runs independent dot products concurrently, each on its own
// multiplier, with at most limit running at once (no limit if limit <= 0).
// Results are in the same order as jobs. The first failing job cancels the
// ones that haven't started yet and its error is returned.
func (d Driver) RunBatch(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			jd := Driver{Logger: d.logger().With(zap.String("job", j.Name))}
			res, err := jd.Run(j.A, j.B)
			if err != nil {
				return fmt.Errorf("job %q: %w", j.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
