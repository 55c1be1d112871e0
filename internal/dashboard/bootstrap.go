package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Bootstrap performs the initial page load: automation flags, the program
// list and the weather score are fetched concurrently. Every fetch runs to
// completion; the first error is returned.
func Bootstrap(ctx context.Context, list *ProgramList, panel *Panel) error {
	var g errgroup.Group
	if panel != nil {
		g.Go(func() error { return panel.LoadAutomation(ctx) })
		g.Go(func() error { return panel.RefreshScore(ctx) })
	}
	if list != nil {
		g.Go(func() error { return list.Load(ctx) })
	}
	return g.Wait()
}
