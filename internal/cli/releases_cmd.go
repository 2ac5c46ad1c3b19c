// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// releases_cmd.go - Release data loading and the "recommender releases" command.
//
// Command: releases
// Short:   Print the release data the persona would carry
//
// Examples:
//   recommender releases                  Category blocks (default mode)
//   recommender releases --mode partition New and re-release sections
//   recommender releases --cutoff 0       Every record, no sampling
//   recommender releases --refresh        Refetch instead of using the cache

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jeranaias/recommender/internal/chat"
	"github.com/jeranaias/recommender/internal/config"
	"github.com/jeranaias/recommender/internal/releases"
)

// openSource builds the configured release source. The scraped schedule is
// wrapped in the SQLite cache unless caching is disabled; local files are
// always read fresh. The returned func releases the cache.
func openSource(cfg *config.Config) (releases.Source, func(), error) {
	if cfg.Releases.Source == config.SourceFile {
		return releases.NewFileSource(cfg.Releases.File), func() {}, nil
	}

	src := releases.NewNumbersSource(cfg.Releases.URL)
	if cfg.Releases.CacheTTLHours == 0 || cfg.Releases.CachePath == "" {
		return src, func() {}, nil
	}

	ttl := time.Duration(cfg.Releases.CacheTTLHours) * time.Hour
	cached, err := releases.NewCachedSource(cfg.Releases.CachePath, "numbers:"+src.URL, src, ttl)
	if err != nil {
		return nil, nil, err
	}
	return cached, func() { cached.Close() }, nil
}

// refreshCache drops cached records for the configured source so the next
// load refetches. Uncached sources need nothing.
func refreshCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	src, closeSrc, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	cached, ok := src.(*releases.CachedSource)
	if !ok {
		return nil
	}
	if err := cached.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to clear release cache: %w", err)
	}
	logger.Info("release cache cleared", "source", cfg.Releases.Source)
	return nil
}

// releaseData loads, samples and formats release records into the
// placeholder values the persona for mode expects. Basic mode needs none.
func releaseData(ctx context.Context, src releases.Source, mode chat.Mode, cutoff int, rng *rand.Rand) (map[string]string, error) {
	if !mode.NeedsReleases() {
		return map[string]string{}, nil
	}

	recs, err := src.Releases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load release data: %w", err)
	}
	recs = releases.Sample(recs, cutoff, rng)

	switch mode {
	case chat.ModePartition:
		fresh, re := releases.FormatPartition(recs)
		return map[string]string{
			chat.KeyNewReleases: fresh,
			chat.KeyReReleases:  re,
		}, nil
	default:
		return map[string]string{
			chat.KeyMovieData: releases.FormatCategories(recs),
		}, nil
	}
}

// loadReleaseData opens the configured source and formats its data for mode.
func loadReleaseData(ctx context.Context, cfg *config.Config, mode chat.Mode, logger *slog.Logger) (map[string]string, error) {
	if !mode.NeedsReleases() {
		return map[string]string{}, nil
	}

	src, closeSrc, err := openSource(cfg)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	data, err := releaseData(ctx, src, mode, cfg.Releases.Cutoff, nil)
	if err != nil {
		return nil, err
	}
	logger.Info("release data loaded", "mode", mode, "source", cfg.Releases.Source, "cutoff", cfg.Releases.Cutoff)
	return data, nil
}

// HandleReleases prints the formatted release data for the configured mode.
func HandleReleases(ctx context.Context, cfg *config.Config, args Args, w io.Writer, logger *slog.Logger) error {
	mode, err := chat.ParseMode(cfg.Chat.Mode)
	if err != nil {
		return err
	}
	if NewArgParser(args.Raw).BoolFlag("refresh") {
		if err := refreshCache(ctx, cfg, logger); err != nil {
			return NewCommandError("releases", "refresh", "could not clear the release cache", err)
		}
	}
	if args.JSON {
		return writeReleasesJSON(ctx, cfg, mode, w, logger)
	}
	if !mode.NeedsReleases() {
		fmt.Fprintln(w, DimStyle.Render("Mode \"basic\" carries no release data."))
		return nil
	}

	data, err := loadReleaseData(ctx, cfg, mode, logger)
	if err != nil {
		return NewCommandError("releases", "load", "could not fetch release data", err)
	}

	if mode == chat.ModePartition {
		fmt.Fprintln(w, TitleStyle.Render("NEW RELEASES"))
		fmt.Fprintln(w, data[chat.KeyNewReleases])
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("RE-RELEASES"))
		fmt.Fprintln(w, data[chat.KeyReReleases])
		return nil
	}
	fmt.Fprintln(w, TitleStyle.Render("MOVIE DATA"))
	fmt.Fprintln(w, data[chat.KeyMovieData])
	return nil
}

func writeReleasesJSON(ctx context.Context, cfg *config.Config, mode chat.Mode, w io.Writer, logger *slog.Logger) error {
	payload := ReleasesJSON{
		Mode:   string(mode),
		Source: cfg.Releases.Source,
		Cutoff: cfg.Releases.Cutoff,
	}
	data, err := loadReleaseData(ctx, cfg, mode, logger)
	if err != nil {
		NewJSONErrorResponse("releases", payload, err).Write(w)
		return NewCommandError("releases", "load", "could not fetch release data", err)
	}
	payload.Data = data
	return NewJSONResponse("releases", payload).Write(w)
}
