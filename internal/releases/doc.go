// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package releases turns movie-release records into prompt text.
//
// Records come from a Source (a local file, The Numbers release schedule, or
// either of those behind a SQLite cache). They are optionally down-sampled
// and then formatted in one of two ways:
//
//   - FormatCategories labels each record with a release type derived from
//     its notes using the ordered Rules table.
//   - FormatPartition splits records into new releases and re-releases.
//
// # Usage
//
//	recs, err := releases.NewNumbersSource("").Releases(ctx)
//	if err != nil {
//	    return err
//	}
//	text := releases.FormatCategories(releases.Sample(recs, 7, nil))
package releases
