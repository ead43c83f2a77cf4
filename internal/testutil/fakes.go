package testutil

import (
	"context"
	"sync"

	"taskify/internal/model"
)

// ViewCache is an in-memory generation-keyed cache, matching the Redis one.
type ViewCache struct {
	mu    sync.Mutex
	gens  map[string]int64
	views map[string]cachedView

	Invalidated []string
}

type cachedView struct {
	gen  int64
	view []model.UnifiedTask
}

func NewViewCache() *ViewCache {
	return &ViewCache{gens: map[string]int64{}, views: map[string]cachedView{}}
}

func (c *ViewCache) Get(_ context.Context, username string) ([]model.UnifiedTask, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gens[username]
	v, ok := c.views[username]
	if !ok || v.gen != gen {
		return nil, gen, false, nil
	}
	return v.view, gen, true, nil
}

func (c *ViewCache) Set(_ context.Context, username string, gen int64, view []model.UnifiedTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[username] = cachedView{gen: gen, view: view}
	return nil
}

func (c *ViewCache) Invalidate(_ context.Context, usernames ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range usernames {
		c.gens[u]++
		c.Invalidated = append(c.Invalidated, u)
	}
	return nil
}

// Notifier records published events.
type Notifier struct {
	mu     sync.Mutex
	Events []model.Event
}

func (n *Notifier) Publish(_ context.Context, ev model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, ev)
}

func (n *Notifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.Events))
	for i, ev := range n.Events {
		out[i] = ev.Type
	}
	return out
}
