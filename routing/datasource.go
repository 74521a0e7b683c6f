package routing

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type incomingType uint

const (
	incomingReset incomingType = iota
	incomingUpdate
)

func (it incomingType) String() string {
	switch it {
	case incomingReset:
		return "reset"
	case incomingUpdate:
		return "update"
	default:
		return "unknown"
	}
}

type routeDefs map[string]*Def

type incomingData struct {
	typ            incomingType
	client         DataClient
	upsertedRoutes []*Def
	deletedIDs     []string
}

func (o *Options) initialBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if o.PollTimeout > 0 && o.PollTimeout < b.InitialInterval {
		b.InitialInterval = o.PollTimeout
	}

	if o.PollTimeout > b.InitialInterval {
		b.MaxInterval = o.PollTimeout
	}

	return b
}

// loads the initial set of routes from a client, retrying with an
// exponential backoff until it succeeds or the routing is closed
func receiveInitial(ctx context.Context, o *Options, c DataClient, out chan<- *incomingData) bool {
	routes, err := backoff.Retry(
		ctx,
		func() ([]*Def, error) { return c.LoadAll() },
		backoff.WithBackOff(o.initialBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			o.Log.Errorf("Error while receiving initial data, retrying in %v: %v", next, err)
		}),
	)
	if err != nil {
		return false
	}

	select {
	case out <- &incomingData{incomingReset, c, routes, nil}:
		return true
	case <-ctx.Done():
		return false
	}
}

// polls the updates of a client. Returns false when the routing was
// closed, and true when the client failed and needs to be reset.
func receiveUpdates(ctx context.Context, o *Options, c DataClient, out chan<- *incomingData) bool {
	ticker := time.NewTicker(o.PollTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}

		routes, deletedIDs, err := c.LoadUpdate()
		if err != nil {
			o.Log.Errorf("Error while receiving update: %v", err)
			return true
		}

		if len(routes) == 0 && len(deletedIDs) == 0 {
			continue
		}

		select {
		case out <- &incomingData{incomingUpdate, c, routes, deletedIDs}:
		case <-ctx.Done():
			return false
		}
	}
}

func receiveFromClient(ctx context.Context, o *Options, c DataClient, out chan<- *incomingData) {
	for {
		if !receiveInitial(ctx, o, c, out) {
			return
		}

		if !receiveUpdates(ctx, o, c, out) {
			return
		}
	}
}

// applies an incoming batch to the current definitions of a client. In
// case of repeated ids in a batch, the first definition is kept.
func applyIncoming(o *Options, defs routeDefs, d *incomingData) routeDefs {
	if d.typ == incomingReset || defs == nil {
		defs = make(routeDefs)
	}

	if d.typ == incomingUpdate {
		for _, id := range d.deletedIDs {
			delete(defs, id)
		}
	}

	seen := make(map[string]bool)
	for _, def := range d.upsertedRoutes {
		if def == nil {
			continue
		}

		if seen[def.ID] {
			err := HandleValidationError(o.Metrics, errDuplicateID, def.ID)
			o.Log.Errorf("Ignoring route definition: %v", err)
			continue
		}

		seen[def.ID] = true
		defs[def.ID] = def
	}

	return defs
}

// merges the definitions of the clients. When the same id is received
// from multiple clients, the client listed first in the options wins.
func mergeDefs(clients []DataClient, defsByClient map[DataClient]routeDefs) []*Def {
	mergeByID := make(routeDefs)
	for i := len(clients) - 1; i >= 0; i-- {
		for id, def := range defsByClient[clients[i]] {
			mergeByID[id] = def
		}
	}

	all := make([]*Def, 0, len(mergeByID))
	for _, def := range mergeByID {
		all = append(all, def)
	}

	return all
}

// receives the route definitions from all the clients, and sends the
// merged set on every change, once every client delivered its initial
// set.
func receiveRouteDefs(ctx context.Context, o *Options, start func(func())) <-chan []*Def {
	in := make(chan *incomingData)
	out := make(chan []*Def)
	defsByClient := make(map[DataClient]routeDefs)

	for _, c := range o.DataClients {
		start(func() { receiveFromClient(ctx, o, c, in) })
	}

	start(func() {
		for {
			var incoming *incomingData
			select {
			case incoming = <-in:
			case <-ctx.Done():
				return
			}

			c := incoming.client
			o.Log.Debugf("Received %s from data client, upserted: %d, deleted: %d",
				incoming.typ, len(incoming.upsertedRoutes), len(incoming.deletedIDs))
			defsByClient[c] = applyIncoming(o, defsByClient[c], incoming)

			// all clients need to be initialized before the first table
			if len(defsByClient) < len(o.DataClients) {
				continue
			}

			select {
			case out <- mergeDefs(o.DataClients, defsByClient):
			case <-ctx.Done():
				return
			}
		}
	})

	return out
}
