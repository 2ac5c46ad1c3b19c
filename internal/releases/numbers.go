// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package releases

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DefaultNumbersURL is The Numbers' public release schedule.
	DefaultNumbersURL = "https://www.the-numbers.com/movies/release-schedule"

	// maxPageSize bounds how much of the schedule page is read.
	maxPageSize = 10 * 1024 * 1024

	numbersTimeout = 30 * time.Second
)

// dateLayouts are the forms a schedule date header may take.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"Monday, January 2, 2006",
	"2006-01-02",
}

// movieYear captures the release year The Numbers embeds in movie URLs,
// e.g. /movie/Casablanca-(1942).
var movieYear = regexp.MustCompile(`\((\d{4})\)`)

// NumbersSource scrapes the release schedule from The Numbers.
//
// The schedule is a table where a single-cell row carries an opening date and
// the movie rows beneath it each link to /movie/<slug>. The remaining cells of
// a movie row (distributor links excluded) become the record's notes.
type NumbersSource struct {
	URL       string
	Client    *http.Client
	UserAgent string
}

// NewNumbersSource creates a scraper. An empty url uses DefaultNumbersURL.
func NewNumbersSource(url string) *NumbersSource {
	if url == "" {
		url = DefaultNumbersURL
	}
	return &NumbersSource{
		URL:       url,
		Client:    &http.Client{Timeout: numbersTimeout},
		UserAgent: "recommender/1.0",
	}
}

// Releases implements Source.
func (s *NumbersSource) Releases(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("release schedule request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release schedule returned HTTP %d", resp.StatusCode)
	}

	return ParseSchedule(io.LimitReader(resp.Body, maxPageSize))
}

// ParseSchedule extracts release records from a schedule page.
func ParseSchedule(r io.Reader) ([]Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule page: %w", err)
	}

	var (
		recs    []Record
		current string
	)
	for _, row := range findAll(doc, atom.Tr) {
		cells := rowCells(row)
		if len(cells) == 0 {
			continue
		}

		link, cellIdx := movieLink(cells)
		if link == nil {
			if text := collapse(textOf(row)); isDate(text) {
				current = text
			}
			continue
		}

		rec := Record{
			Title:       collapse(textOf(link)),
			OpeningDate: current,
		}

		var notes []string
		for i, c := range cells {
			if i == cellIdx || hasDistributorLink(c) {
				continue
			}
			if text := collapse(textOf(c)); text != "" {
				notes = append(notes, text)
			}
		}
		rec.Notes = strings.Join(notes, ", ")

		if IsReRelease(rec.Notes) {
			if m := movieYear.FindStringSubmatch(attr(link, "href")); m != nil {
				rec.OriginalDate = m[1]
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// =============================================================================
// HTML HELPERS
// =============================================================================

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func rowCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

// movieLink returns the first /movie/ link in the row and the cell holding it.
func movieLink(cells []*html.Node) (*html.Node, int) {
	for i, c := range cells {
		for _, a := range findAll(c, atom.A) {
			if strings.Contains(attr(a, "href"), "/movie/") {
				return a, i
			}
		}
	}
	return nil, -1
}

func hasDistributorLink(cell *html.Node) bool {
	for _, a := range findAll(cell, atom.A) {
		if strings.Contains(attr(a, "href"), "/distributor/") {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
