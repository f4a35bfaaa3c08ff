package discover

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
	skillvalidator "github.com/thoreinstein/skillkit/internal/skill/validator"
	"github.com/thoreinstein/skillkit/internal/validator"
)

// Linter validates many skills at once.
type Linter struct {
	validator *skillvalidator.Validator
	workers   int
}

// NewLinter creates a Linter. workers <= 0 means GOMAXPROCS.
func NewLinter(v *skillvalidator.Validator, workers int) *Linter {
	if v == nil {
		v = skillvalidator.New()
	}
	return &Linter{validator: v, workers: workers}
}

// LintAll validates every skill directory in dirs and returns one result per
// directory, sorted by path. Cancelling ctx stops work that has not started
// and returns ctx.Err().
func (l *Linter) LintAll(ctx context.Context, dirs []string) ([]*validator.Result, error) {
	if len(dirs) == 0 {
		return nil, nil
	}
	logger := logging.FromContext(ctx)

	workers := l.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(dirs))

	work := make(chan string)
	results := make(chan *validator.Result, len(dirs))
	errs := make(chan error, len(dirs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range work {
				if ctx.Err() != nil {
					continue
				}
				logger.Debug("linting skill", "dir", dir)
				res, err := l.validator.ValidateFile(dir)
				if err != nil {
					errs <- errors.Wrapf(err, "linting %s", dir)
					continue
				}
				logger.Log(ctx, logging.LevelTrace, "skill linted",
					"dir", dir, "errors", len(res.Errors()), "warnings", len(res.Warnings()))
				results <- res
			}
		}()
	}

	go func() {
		defer close(work)
		for _, dir := range dirs {
			select {
			case work <- dir:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)
	close(errs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	if len(all) > 0 {
		var combined error
		for _, err := range all {
			combined = errors.CombineErrors(combined, err)
		}
		return nil, combined
	}

	out := make([]*validator.Result, 0, len(dirs))
	for res := range results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Lint discovers skills under root with d and validates them.
func (l *Linter) Lint(ctx context.Context, d *Discoverer, root string) ([]Entry, []*validator.Result, error) {
	entries, err := d.Find(root)
	if err != nil {
		return nil, nil, err
	}
	dirs := make([]string, len(entries))
	for i, e := range entries {
		dirs[i] = e.Dir
	}
	results, err := l.LintAll(ctx, dirs)
	if err != nil {
		return entries, nil, err
	}
	return entries, results, nil
}
