// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package releases

import (
	"context"
	"math/rand/v2"
)

// Record is one movie release as reported by a Source.
type Record struct {
	Title        string `json:"title" toml:"title"`
	Notes        string `json:"notes" toml:"notes"`
	OpeningDate  string `json:"opening_date_str" toml:"opening_date_str"`
	OriginalDate string `json:"original_date_str,omitempty" toml:"original_date_str"`
}

// Source supplies release records.
type Source interface {
	Releases(ctx context.Context) ([]Record, error)
}

// Sample returns at most cutoff records drawn uniformly without replacement.
// A cutoff of zero, or one at least as large as the list, returns recs
// unchanged. A nil rng uses the package-level generator.
func Sample(recs []Record, cutoff int, rng *rand.Rand) []Record {
	if cutoff <= 0 || cutoff >= len(recs) {
		return recs
	}

	var perm []int
	if rng != nil {
		perm = rng.Perm(len(recs))
	} else {
		perm = rand.Perm(len(recs))
	}

	out := make([]Record, cutoff)
	for i, idx := range perm[:cutoff] {
		out[i] = recs[idx]
	}
	return out
}
