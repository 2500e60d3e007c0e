// Package replica implements the gateway's replica pool: an immutable
// ordered list of upstream replica URLs with a process-wide atomic
// round-robin counter.
package replica

import (
	"fmt"
	"sync/atomic"
)

// Pool is an immutable, concurrency-safe round-robin picker over a
// fixed list of replica URLs. The list never changes after
// construction; only the dispatch counter mutates, atomically.
type Pool struct {
	urls    []string
	counter atomic.Uint64
}

// New builds a Pool from urls. An empty list is a fatal configuration
// error, per spec.md §3.
func New(urls []string) (*Pool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("replica: pool must have at least one replica URL")
	}
	cp := make([]string, len(urls))
	copy(cp, urls)
	return &Pool{urls: cp}, nil
}

// Pick fetches-and-adds the dispatch counter and returns the replica at
// the resulting index modulo the pool size. Intended to be called once
// per new connection (see internal/gateway/dispatcher.go), not once per
// request, so that a replica is pinned for the lifetime of a
// connection.
func (p *Pool) Pick() string {
	n := p.counter.Add(1) - 1
	return p.urls[n%uint64(len(p.urls))]
}

// Len returns the number of replicas in the pool.
func (p *Pool) Len() int {
	return len(p.urls)
}
