package dashboard

import (
	"context"
	"sync"
)

// Controller holds a selection and loads its detail in the background.
// Selecting another scan cancels the load in flight, and a stale load never
// overwrites the state of a newer selection.
type Controller struct {
	source   DetailSource
	onChange func(DetailState)

	// publish serializes state changes with their notifications
	publish sync.Mutex

	mu     sync.Mutex
	sel    Selection
	state  DetailState
	gen    uint64
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// NewController creates a controller with nothing selected. onChange, when
// set, receives every state in order; it may call State or Selection but
// must not call Toggle.
func NewController(source DetailSource, onChange func(DetailState)) *Controller {
	return &Controller{
		source:   source,
		onChange: onChange,
		state:    DetailState{Kind: KindNoSelection},
	}
}

// Toggle applies Selection.Toggle and starts loading the new selection. It
// returns the immediate state: KindLoading, or KindNoSelection when the
// selection was cleared.
func (c *Controller) Toggle(ctx context.Context, id string) DetailState {
	c.publish.Lock()
	defer c.publish.Unlock()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	gen := c.gen
	c.sel = c.sel.Toggle(id)
	sel := c.sel

	selected, ok := sel.ID()
	if !ok {
		c.state = DetailState{Kind: KindNoSelection}
	} else {
		c.state = DetailState{Kind: KindLoading, ScanID: selected}
	}
	state := c.state

	var loadCtx context.Context
	if ok {
		loadCtx, c.cancel = context.WithCancel(ctx)
	}
	c.mu.Unlock()

	c.notify(state)

	if ok {
		c.wg.Add(1)
		go c.load(loadCtx, gen, sel)
	}
	return state
}

func (c *Controller) load(ctx context.Context, gen uint64, sel Selection) {
	defer c.wg.Done()

	result := ViewFor(ctx, c.source, sel)

	c.publish.Lock()
	defer c.publish.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = result
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.notify(result)
}

func (c *Controller) notify(state DetailState) {
	if c.onChange != nil {
		c.onChange(state)
	}
}

// State returns the current detail state.
func (c *Controller) State() DetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selection returns the current selection.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// Wait blocks until every started load has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the load in flight and waits for it to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.mu.Unlock()
	c.wg.Wait()
}
