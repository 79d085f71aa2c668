// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package executor runs similarity queries on a small bounded worker
// pool, modeling the async completion protocol of spec.md §9: a caller
// submits a job, blocks on a future, and the worker pool runs the
// pipeline and fires the completion without the caller ever holding an
// index lock across the run.
package executor

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sync/singleflight"

	"github.com/vexdb/vecindex/internal/search"
)

// Query is one similarity request: find the K nearest neighbors of
// Probe. SearchFunc is the pipeline the pool invokes to answer it —
// callers supply index.Index.Search (or a stand-in for testing).
type Query struct {
	Probe []float32
	K     int
}

// Result is a query's outcome, delivered over the channel Submit
// returns.
type Result struct {
	Records []search.ScoreRecord
	Err     error
}

// SearchFunc runs one query to completion. It is the only thing the
// pool actually calls — wiring it to index.Index.Search is the host's
// job, not the executor's.
type SearchFunc func(ctx context.Context, probe []float32, k int) ([]search.ScoreRecord, error)

// Pool is a bounded worker pool executing Queries against a SearchFunc,
// deduplicating identical in-flight (k, probe) pairs via singleflight
// so two callers racing on the same query share one pipeline run
// without changing either caller's observable result.
type Pool struct {
	jobs   chan job
	search SearchFunc
	flight singleflight.Group
	done   chan struct{}
}

type job struct {
	ctx   context.Context
	query Query
	reply chan Result
}

// New starts a Pool of n worker goroutines calling fn to answer
// queries. n is clamped to at least 1.
func New(n int, fn SearchFunc) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		jobs:   make(chan job, n*4),
		search: fn,
		done:   make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for {
		select {
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(j)
		case <-p.done:
			return
		}
	}
}

func (p *Pool) run(j job) {
	key := dedupeKey(j.query)
	v, err, _ := p.flight.Do(key, func() (any, error) {
		return p.search(j.ctx, j.query.Probe, j.query.K)
	})
	if err != nil {
		j.reply <- Result{Err: err}
		return
	}
	j.reply <- Result{Records: v.([]search.ScoreRecord)}
}

// Submit enqueues q and returns a channel that receives exactly one
// Result once the pool has run it. The caller should not hold any lock
// while waiting on the channel.
func (p *Pool) Submit(ctx context.Context, q Query) <-chan Result {
	reply := make(chan Result, 1)
	select {
	case p.jobs <- job{ctx: ctx, query: q, reply: reply}:
	case <-ctx.Done():
		reply <- Result{Err: ctx.Err()}
	}
	return reply
}

// Close signals every worker to exit; a worker finishes the job it is
// running first. Submit does not check whether the pool is closed, and
// jobs still queued when the workers exit are not run, so their reply
// channels never receive a Result.
func (p *Pool) Close() {
	close(p.done)
}

// dedupeKey builds the singleflight key for a query: K and the probe's
// raw bytes, so two bit-identical probes with the same K collapse onto
// one pipeline run.
func dedupeKey(q Query) string {
	buf := make([]byte, 4+len(q.Probe)*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(q.K))
	for i, f := range q.Probe {
		binary.LittleEndian.PutUint32(buf[4+i*4:8+i*4], math.Float32bits(f))
	}
	return fmt.Sprintf("%x", buf)
}
