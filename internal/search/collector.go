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

package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vexdb/vecindex/internal/arena"
)

// Collect runs the two-phase fan-out/collector reduction of spec.md
// §4.D: one Reader+Accumulator pass per shard, executed concurrently,
// then a second Accumulator merging every shard's local top-K into one
// global top-K. Shards never see each other's partial results — only
// their own flattened ScoreRecord list crosses the merge boundary,
// which is exactly the shape ScoreRecord's MarshalBinary/UnmarshalBinary
// pair exists to support for shards that live across a process boundary.
func Collect(ctx context.Context, shards []*arena.Arena, probe []float32, k int) ([]ScoreRecord, error) {
	if k <= 0 || len(shards) == 0 {
		return nil, nil
	}

	partials := make([][]ScoreRecord, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			reader, err := NewReader(shard, probe, k)
			if err != nil {
				return err
			}
			acc := NewAccumulator(k)
			for {
				rec, ok := reader.Next(gctx)
				if !ok {
					break
				}
				acc.Accumulate(rec)
			}
			partials[i] = ToScoreRecords(acc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewAccumulator(k)
	for _, partial := range partials {
		for _, rec := range partial {
			merged.Accumulate(rec)
		}
	}

	return ToScoreRecords(merged), nil
}
