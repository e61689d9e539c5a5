// Package coordinator drives search for a set of mounted widgets.
//
// A Coordinator owns one primary query binding plus one derived binding per
// non-primary index targeted by a widget. Every search pass recomposes the
// parameters, discards the derived bindings and creates fresh ones, then sends
// all queries as one batch to the search.Client.
//
// # Event Queue
//
// All orchestration state is owned by a single goroutine consuming an ordered
// event queue. Public operations enqueue an event and return. Backend
// responses and stall-timer expiries are events too, handled in arrival order:
//
//	registry change ─┐
//	external update ─┼─> queue ─> handler ─> store.SetState ─> subscribers
//	response/timer  ─┘
//
// Pending round trips are counted in aggregate across all bindings. The stall
// timer is armed on the first dispatch after settling and marks the search as
// stalled if it expires first. It is cleared when the last pending round trip
// resolves.
//
// # Results Shape
//
// With no derived bindings the store holds the primary payload as flat
// results. With derived bindings it holds a mapping from index to payload;
// a payload is matched to its binding by identity against the binding's last
// recorded results, falling back to the primary index.
//
// # Usage
//
//	c, err := coordinator.New("products", client)
//	if err != nil {
//	    return err
//	}
//	defer c.Stop()
//
//	c.Registry().Register(widget.SearchBox(""))
//	c.OnExternalStateUpdate(core.SearchState{"query": "lamp"})
//	c.WaitIdle(ctx)
//	results := c.Store().GetState().Results
package coordinator
