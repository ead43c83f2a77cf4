package service

import (
	"context"
	"log"
	"slices"
	"time"

	"taskify/internal/model"

	"golang.org/x/sync/singleflight"
)

// viewBuildTimeout bounds a shared view build, which runs detached from any one caller.
const viewBuildTimeout = 30 * time.Second

// Aggregator builds a user's unified task view from both stores. It only reads.
type Aggregator struct {
	tasks  TaskStore
	groups GroupStore
	cache  ViewCache
	sf     singleflight.Group
}

// NewAggregator creates the unified view reader. cache may be nil.
func NewAggregator(tasks TaskStore, groups GroupStore, cache ViewCache) *Aggregator {
	return &Aggregator{tasks: tasks, groups: groups, cache: cache}
}

// UnifiedView returns the caller's incomplete personal tasks merged with the
// incomplete tasks assigned to them in every active group they belong to,
// ordered by due date with undated tasks last.
func (a *Aggregator) UnifiedView(ctx context.Context, caller string) ([]model.UnifiedTask, error) {
	var gen int64
	if a.cache != nil {
		view, g, ok, err := a.cache.Get(ctx, caller)
		switch {
		case err != nil:
			log.Printf("view cache: get %s: %v", caller, err)
		case ok:
			return view, nil
		default:
			gen = g
		}
	}

	v, err, _ := a.sf.Do(caller, func() (interface{}, error) {
		// concurrent callers share this result, so the first caller's
		// cancellation must not fail the rest
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), viewBuildTimeout)
		defer cancel()

		view, err := a.build(bctx, caller)
		if err != nil {
			return nil, err
		}
		if a.cache != nil {
			if err := a.cache.Set(bctx, caller, gen, view); err != nil {
				log.Printf("view cache: set %s: %v", caller, err)
			}
		}
		return view, nil
	})
	if err != nil {
		return nil, translate("unified view", err)
	}
	return v.([]model.UnifiedTask), nil
}

func (a *Aggregator) build(ctx context.Context, caller string) ([]model.UnifiedTask, error) {
	personal, err := a.tasks.ListOpen(ctx, caller)
	if err != nil {
		return nil, err
	}
	groups, err := a.groups.ListForUser(ctx, caller)
	if err != nil {
		return nil, err
	}

	view := make([]model.UnifiedTask, 0, len(personal))
	for i := range personal {
		view = append(view, model.UnifiedTask{Source: model.SourcePersonal, Personal: &personal[i]})
	}
	for _, g := range groups {
		if !g.IsActive || !g.IsMember(caller) {
			continue
		}
		for _, t := range g.Tasks {
			if t.AssignedTo != caller || t.Completed {
				continue
			}
			view = append(view, model.UnifiedTask{
				Source: model.SourceGroup,
				Group: &model.AnnotatedGroupTask{
					GroupTask: t,
					GroupName: g.Name,
					GroupID:   g.ID.String(),
				},
			})
		}
	}

	slices.SortStableFunc(view, func(x, y model.UnifiedTask) int {
		return compareDue(x, y)
	})
	return view, nil
}

// compareDue orders by due date ascending; a missing date sorts after any date.
func compareDue(x, y model.UnifiedTask) int {
	dx, dy := x.DueDate(), y.DueDate()
	switch {
	case dx == nil && dy == nil:
		return 0
	case dx == nil:
		return 1
	case dy == nil:
		return -1
	}
	return dx.Compare(*dy)
}
