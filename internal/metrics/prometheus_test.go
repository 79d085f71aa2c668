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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorRegistersAndCollects(t *testing.T) {
	s := &Stats{startTime: time.Now()}
	s.IncrementCommands()
	s.IncrementKeys()
	s.IncrementSearches()

	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(s)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var sawSearches bool
	for _, mf := range families {
		if mf.GetName() == "vecindex_searches_total" {
			sawSearches = true
			got := mf.GetMetric()[0].GetCounter().GetValue()
			if got != 1 {
				t.Errorf("vecindex_searches_total = %v, want 1", got)
			}
		}
	}
	if !sawSearches {
		t.Error("Gather() did not report vecindex_searches_total")
	}
}
