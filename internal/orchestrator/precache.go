package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// startPrecache renders every note of st into the HTML caches in the
// background. Per-note failures are counted and logged; they never stop the
// sweep. The sweep is bound to the orchestrator's lifetime, not to the
// refresh that started it.
func (o *Orchestrator) startPrecache(st *State) {
	files := st.Root.MarkdownFiles()
	if len(files) == 0 {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.precache(o.ctx, files)
	}()
}

func (o *Orchestrator) precache(ctx context.Context, files []string) {
	start := time.Now()
	total := len(files)
	step := max(1, total/10)
	o.config.Logger.Printf("Precache: rendering %d notes with %d workers", total, o.config.PrecacheWorkers)

	var processed, succeeded, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.PrecacheWorkers)

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if _, err := o.renderPath(path); err != nil {
				failed.Add(1)
				precacheFiles.WithLabelValues("failure").Inc()
				o.config.Logger.Printf("WARNING: Failed to precache %s: %v", path, err)
			} else {
				succeeded.Add(1)
				precacheFiles.WithLabelValues("success").Inc()
			}

			if n := processed.Add(1); n%int64(step) == 0 && n < int64(total) {
				o.config.Logger.Printf("Precache: %d/%d (%d%%), %d succeeded, %d failed",
					n, total, n*100/int64(total), succeeded.Load(), failed.Load())
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		o.config.Logger.Printf("Precache cancelled after %d/%d notes", processed.Load(), total)
		return
	}
	o.config.Logger.Printf("Precache complete: %d succeeded, %d failed in %v",
		succeeded.Load(), failed.Load(), time.Since(start).Round(time.Millisecond))
}
