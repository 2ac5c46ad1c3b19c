// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package releases

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLabel is used when no rule matches.
const DefaultLabel = "General Release"

// Rule maps a notes keyword to a release-type label.
type Rule struct {
	Keyword string
	Label   string
}

// Rules are checked in order; the first match wins.
var Rules = []Rule{
	{Keyword: "wide", Label: "Wide Release"},
	{Keyword: "limited", Label: "Limited Release"},
	{Keyword: "imax", Label: "IMAX Release"},
	{Keyword: "re-release", Label: "Re-release"},
	{Keyword: "festival", Label: "Festival Release"},
	{Keyword: "special", Label: "Special Engagement"},
}

// Labels returns every label Classify can produce, default last.
func Labels() []string {
	out := make([]string, 0, len(Rules)+1)
	for _, r := range Rules {
		out = append(out, r.Label)
	}
	return append(out, DefaultLabel)
}

// Classify derives the release-type label from the first comma-separated
// segment of notes.
func Classify(notes string) string {
	if notes == "" {
		return DefaultLabel
	}
	primary, _, _ := strings.Cut(notes, ",")
	primary = lower(strings.TrimSpace(primary))

	for _, r := range Rules {
		if strings.Contains(primary, r.Keyword) {
			return r.Label
		}
	}
	return DefaultLabel
}

// IsReRelease reports whether any part of notes mentions a re-release.
func IsReRelease(notes string) bool {
	return strings.Contains(lower(notes), "re-release")
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
