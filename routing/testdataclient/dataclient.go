/*
Package testdataclient provides a test implementation for the DataClient
interface of the routing package.

It uses in-memory route definitions that are passed in on construction,
and can be upserted/deleted programmatically.
*/
package testdataclient

import (
	"errors"
	"sync"

	"github.com/zalando/fastlane/routing"
)

// Client is a DataClient implementation.
type Client struct {
	mu         sync.Mutex
	routes     map[string]*routing.Def
	upsert     []*routing.Def
	deletedIDs []string
	failNext   int
	loads      int
}

var errFailingRequested = errors.New("failing requested")

// New creates a Client with an initial set of route definitions.
func New(initial []*routing.Def) *Client {
	c := &Client{routes: make(map[string]*routing.Def)}
	for _, r := range initial {
		c.routes[r.ID] = r
	}

	return c
}

// LoadAll returns the current set of route definitions.
func (c *Client) LoadAll() ([]*routing.Def, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loads++
	if c.failNext > 0 {
		c.failNext--
		return nil, errFailingRequested
	}

	// the pending changes are part of the complete set
	c.upsert, c.deletedIDs = nil, nil

	routes := make([]*routing.Def, 0, len(c.routes))
	for _, r := range c.routes {
		routes = append(routes, r)
	}

	return routes, nil
}

// LoadUpdate returns the changes since the last call.
func (c *Client) LoadUpdate() ([]*routing.Def, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failNext > 0 {
		c.failNext--
		return nil, nil, errFailingRequested
	}

	upsert, deletedIDs := c.upsert, c.deletedIDs
	c.upsert, c.deletedIDs = nil, nil
	return upsert, deletedIDs, nil
}

// Update upserts and deletes route definitions. The changes are
// returned by the next call to LoadUpdate.
func (c *Client) Update(upsert []*routing.Def, deletedIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range deletedIDs {
		delete(c.routes, id)
	}

	for _, r := range upsert {
		c.routes[r.ID] = r
	}

	c.upsert = append(c.upsert, upsert...)
	c.deletedIDs = append(c.deletedIDs, deletedIDs...)
}

// FailNext makes the next n calls to LoadAll or LoadUpdate fail.
func (c *Client) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

// Loads returns how many times LoadAll was called.
func (c *Client) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}
