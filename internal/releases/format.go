// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package releases

import (
	"fmt"
	"strings"
)

// UnknownDate fills in a missing original release date.
const UnknownDate = "Unknown"

// FormatCategories emits one labelled block per record, in input order.
func FormatCategories(recs []Record) string {
	var b strings.Builder
	for _, r := range recs {
		b.WriteString("\n")
		fmt.Fprintf(&b, "\tMOVIE TITLE: %s\n", r.Title)
		fmt.Fprintf(&b, "\tRELEASE TYPE: %s\n", Classify(r.Notes))
		fmt.Fprintf(&b, "\tOPENING DATE: %s\n", r.OpeningDate)
	}
	return b.String()
}

// Partition splits records into new releases and re-releases, keeping the
// relative order of each.
func Partition(recs []Record) (fresh, rereleased []Record) {
	for _, r := range recs {
		if IsReRelease(r.Notes) {
			rereleased = append(rereleased, r)
		} else {
			fresh = append(fresh, r)
		}
	}
	return fresh, rereleased
}

// FormatPartition renders the new-release and re-release blocks separately.
func FormatPartition(recs []Record) (newReleases, reReleases string) {
	fresh, rereleased := Partition(recs)

	newBlocks := make([]string, 0, len(fresh))
	for _, r := range fresh {
		var b strings.Builder
		fmt.Fprintf(&b, "\tMOVIE TITLE: %s\n", r.Title)
		fmt.Fprintf(&b, "\tRELEASE TYPE: %s\n", releaseType(r.Notes))
		fmt.Fprintf(&b, "\tOPENING DATE: %s\n", r.OpeningDate)
		newBlocks = append(newBlocks, b.String())
	}

	reBlocks := make([]string, 0, len(rereleased))
	for _, r := range rereleased {
		original := r.OriginalDate
		if original == "" {
			original = UnknownDate
		}
		var b strings.Builder
		fmt.Fprintf(&b, "\tMOVIE TITLE: %s\n", r.Title)
		fmt.Fprintf(&b, "\tRELEASE TYPE: %s\n", releaseType(r.Notes))
		fmt.Fprintf(&b, "\tORIGINAL RELEASE DATE: %s\n", original)
		fmt.Fprintf(&b, "\tRE-RELEASE DATE: %s\n", r.OpeningDate)
		reBlocks = append(reBlocks, b.String())
	}

	return strings.Join(newBlocks, "\n"), strings.Join(reBlocks, "\n")
}

// releaseType is the raw first segment of notes.
func releaseType(notes string) string {
	first, _, _ := strings.Cut(notes, ",")
	return first
}
