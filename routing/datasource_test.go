package routing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/fastlane/logging/loggingtest"
	"github.com/zalando/fastlane/metrics/metricstest"
)

type staticClient struct {
	mu      sync.Mutex
	defs    []*Def
	failing bool
}

func (c *staticClient) LoadAll() ([]*Def, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, errors.New("failing")
	}

	return c.defs, nil
}

func (c *staticClient) LoadUpdate() ([]*Def, []string, error) { return nil, nil, nil }

func (c *staticClient) setFailing(f bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = f
}

func defIDs(defs []*Def) []string {
	var ids []string
	for _, d := range defs {
		ids = append(ids, d.ID)
	}

	sort.Strings(ids)
	return ids
}

func TestIncomingTypeString(t *testing.T) {
	assert.Equal(t, "reset", incomingReset.String())
	assert.Equal(t, "update", incomingUpdate.String())
	assert.Equal(t, "unknown", incomingType(42).String())
}

func TestInitialBackOff(t *testing.T) {
	o := &Options{PollTimeout: 10 * time.Millisecond}
	b := o.initialBackOff().(*backoff.ExponentialBackOff)
	assert.Equal(t, 10*time.Millisecond, b.InitialInterval)

	o = &Options{PollTimeout: time.Minute}
	b = o.initialBackOff().(*backoff.ExponentialBackOff)
	assert.Equal(t, time.Minute, b.MaxInterval)
}

func TestApplyIncoming(t *testing.T) {
	mtr := &metricstest.MockMetrics{}
	tl := loggingtest.New()
	defer tl.Close()

	o := &Options{Metrics: mtr, Log: tl}

	defs := applyIncoming(o, nil, &incomingData{
		typ:            incomingReset,
		upsertedRoutes: []*Def{{ID: "a"}, {ID: "b"}, nil},
	})
	assert.Equal(t, []string{"a", "b"}, defIDs(mapValues(defs)))

	first := &Def{ID: "c", Path: "/first"}
	defs = applyIncoming(o, defs, &incomingData{
		typ:            incomingUpdate,
		upsertedRoutes: []*Def{first, {ID: "c", Path: "/second"}},
		deletedIDs:     []string{"a", "unknown"},
	})
	assert.Equal(t, []string{"b", "c"}, defIDs(mapValues(defs)))
	assert.Same(t, first, defs["c"])

	reason, ok := mtr.InvalidRoute("c")
	assert.True(t, ok)
	assert.Equal(t, "duplicate_id", reason)

	defs = applyIncoming(o, defs, &incomingData{
		typ:            incomingReset,
		upsertedRoutes: []*Def{{ID: "d"}},
	})
	assert.Equal(t, []string{"d"}, defIDs(mapValues(defs)))
}

func mapValues(defs routeDefs) []*Def {
	var values []*Def
	for _, d := range defs {
		values = append(values, d)
	}

	return values
}

func TestMergeDefsFirstClientWins(t *testing.T) {
	c1, c2 := &staticClient{}, &staticClient{}
	fromFirst := &Def{ID: "shared", Path: "/first"}
	merged := mergeDefs([]DataClient{c1, c2}, map[DataClient]routeDefs{
		c1: {"shared": fromFirst, "one": {ID: "one"}},
		c2: {"shared": {ID: "shared", Path: "/second"}, "two": {ID: "two"}},
	})

	assert.Equal(t, []string{"one", "shared", "two"}, defIDs(merged))
	for _, d := range merged {
		if d.ID == "shared" {
			assert.Same(t, fromFirst, d)
		}
	}
}

func TestReceiveWaitsForAllClients(t *testing.T) {
	tl := loggingtest.New()
	defer tl.Close()

	c1 := &staticClient{defs: []*Def{{ID: "one"}}}
	c2 := &staticClient{defs: []*Def{{ID: "two"}}, failing: true}
	o := &Options{
		DataClients: []DataClient{c1, c2},
		PollTimeout: 5 * time.Millisecond,
		Metrics:     &metricstest.MockMetrics{},
		Log:         tl,
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	start := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	updates := receiveRouteDefs(ctx, o, start)
	require.NoError(t, tl.WaitFor("Error while receiving initial data", time.Second))

	select {
	case <-updates:
		t.Fatal("unexpected update before every client was initialized")
	case <-time.After(20 * time.Millisecond):
	}

	c2.setFailing(false)
	select {
	case defs := <-updates:
		assert.Equal(t, []string{"one", "two"}, defIDs(defs))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for the initial routes")
	}
}
