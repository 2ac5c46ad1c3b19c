// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
)

// Mode selects which persona and release formatting a session uses.
type Mode string

const (
	// ModeBasic uses the critic persona with no release data.
	ModeBasic Mode = "basic"
	// ModePartition lists new releases and re-releases separately.
	ModePartition Mode = "partition"
	// ModeCategory labels every release with its release type.
	ModeCategory Mode = "category"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{ModeBasic, ModePartition, ModeCategory}

// Placeholder names used by the built-in personas.
const (
	KeyNewReleases = "NewReleases"
	KeyReReleases  = "ReReleases"
	KeyMovieData   = "MovieData"
)

const criticPreamble = `You are a movie critic who wants to make sure that you make the best movie recommendations. Make sure that the movie you recommend satisfies the user across many movie attributes including genre, actors, visuals, music, plot line, character development, dialog, mood, and many other movie attributes.`

// PersonaBasic always steers the assistant towards a recommendation.
var PersonaBasic = Persona{
	Name:     string(ModeBasic),
	Template: criticPreamble + ` Your responses should always focus on making movie recommendations.`,
}

// PersonaPartition carries separate blocks for new releases and re-releases.
var PersonaPartition = Persona{
	Name: string(ModePartition),
	Template: criticPreamble + `

Here is information about current movies in theaters:

NEW RELEASES:
{{.NewReleases}}

RE-RELEASES:
{{.ReReleases}}

When recommending movies, consider whether the user might prefer a brand new movie or a classic that's been re-released in theaters. Your responses should always focus on making appropriate movie recommendations based on the user's preferences.`,
}

// PersonaCategory explains the release-type labels and carries one block per movie.
var PersonaCategory = Persona{
	Name: string(ModeCategory),
	Template: criticPreamble + `

Pay special attention to the RELEASE TYPE when making recommendations, as different release types often indicate different viewing experiences:
- Wide Releases: Major studio films with broad appeal, typically big-budget productions
- Limited Releases: Often independent or art-house films with more niche appeal
- IMAX Releases: Films optimized for large-format, immersive viewing
- Re-releases: Classic films returning to theaters, often remastered
- Festival Releases: Typically award-contending films with critical acclaim
- Special Engagement: Unique screenings or events around the film

Here is a list of recently released movies. The list contains the MOVIE TITLE, the RELEASE TYPE, and the OPENING DATE for each movie.

{{.MovieData}}

Your responses should always focus on making movie recommendations that consider the release type when appropriate.`,
}

// ParseMode converts a config value into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// NeedsReleases reports whether the mode injects release data.
func (m Mode) NeedsReleases() bool {
	return m == ModePartition || m == ModeCategory
}

// PersonaFor returns the built-in persona for a mode.
func PersonaFor(m Mode) (Persona, error) {
	switch m {
	case ModeBasic:
		return PersonaBasic, nil
	case ModePartition:
		return PersonaPartition, nil
	case ModeCategory:
		return PersonaCategory, nil
	default:
		return Persona{}, fmt.Errorf("unknown mode %q", m)
	}
}
