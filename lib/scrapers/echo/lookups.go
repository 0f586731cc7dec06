package echo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// ErrDiscoveryParse means a lookup document did not contain the literal
// list it was expected to. State and county enumeration is foundational
// to every query, so callers abort the run on it.
var ErrDiscoveryParse = errors.New("lookup document has unexpected layout")

// Lookups holds the discovered query grammar: valid state codes in
// source order and, per state, valid county names.
type Lookups struct {
	States   []string
	Counties map[string][]string
}

// CountiesFor returns the valid county values within a state.
func (l Lookups) CountiesFor(state string) []string {
	return l.Counties[state]
}

// FetchLookups fetches the search page, locates the state/county
// lookup scripts referenced by it and parses them.
func (c *Client) FetchLookups(ctx context.Context) (Lookups, error) {
	ctx, span := tracer.Start(ctx, "client:FetchLookups")
	defer span.End()

	statesUrl, countiesUrl, err := c.lookupScriptUrls(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to locate lookup scripts")
		return Lookups{}, err
	}

	statesDoc, err := c.Fetch.Get(ctx, statesUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch state lookup")
		return Lookups{}, err
	}
	states, err := ParseStates(statesDoc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse state lookup")
		return Lookups{}, err
	}

	countiesDoc, err := c.Fetch.Get(ctx, countiesUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch county lookup")
		return Lookups{}, err
	}
	counties, err := ParseCounties(countiesDoc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse county lookup")
		return Lookups{}, err
	}

	return Lookups{States: states, Counties: counties}, nil
}

// finds the <script src=...> tags on the search page that carry the
// state and county literal arrays.
func (c *Client) lookupScriptUrls(ctx context.Context) (string, string, error) {
	page, err := c.Fetch.Get(ctx, c.SearchPageUrl)
	if err != nil {
		return "", "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(page))
	if err != nil {
		return "", "", err
	}
	pageUrl, err := url.Parse(c.SearchPageUrl)
	if err != nil {
		return "", "", err
	}

	var statesUrl, countiesUrl string
	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		name := strings.ToLower(src)
		resolved, err := pageUrl.Parse(src)
		if err != nil {
			return
		}
		switch {
		case strings.Contains(name, "county"):
			countiesUrl = resolved.String()
		case strings.Contains(name, "state"):
			statesUrl = resolved.String()
		}
	})

	if statesUrl == "" || countiesUrl == "" {
		return "", "", fmt.Errorf(
			"search page references no state/county scripts: %w",
			ErrDiscoveryParse,
		)
	}
	return statesUrl, countiesUrl, nil
}

var stateArrayPattern = regexp.MustCompile(`stateArray\s*=\s*\[([^\]]*)\]`)
var countyArrayPattern = regexp.MustCompile(`countyArray\[\s*"([A-Z]{2})"\s*\]\s*=\s*\[([^\]]*)\]`)
var quotedItemPattern = regexp.MustCompile(`"([^"]*)"`)

func parseQuotedList(items string) []string {
	var out []string
	for _, match := range quotedItemPattern.FindAllStringSubmatch(items, -1) {
		out = append(out, match[1])
	}
	return out
}

// ParseStates extracts the valid state codes from the state lookup
// script. The script embeds a literal list like
//
//	stateArray = ["Any","NY - New York","CA - California"];
//
// the first entry is the unfiltered placeholder and is dropped, the
// display suffix after " - " is stripped.
func ParseStates(doc []byte) ([]string, error) {
	m := stateArrayPattern.FindSubmatch(doc)
	if m == nil {
		return nil, fmt.Errorf("no stateArray literal found: %w", ErrDiscoveryParse)
	}
	entries := parseQuotedList(string(m[1]))
	if len(entries) < 2 {
		return nil, fmt.Errorf("stateArray has no states: %w", ErrDiscoveryParse)
	}

	var states []string
	for _, entry := range entries[1:] {
		code, _, _ := strings.Cut(entry, " - ")
		states = append(states, strings.TrimSpace(code))
	}
	return states, nil
}

// ParseCounties extracts the per-state county lists from the county
// lookup script. Each state's first entry is its placeholder and is
// dropped.
func ParseCounties(doc []byte) (map[string][]string, error) {
	matches := countyArrayPattern.FindAllSubmatch(doc, -1)
	if matches == nil {
		return nil, fmt.Errorf("no countyArray literals found: %w", ErrDiscoveryParse)
	}

	counties := map[string][]string{}
	for _, m := range matches {
		state := string(m[1])
		entries := parseQuotedList(string(m[2]))
		if len(entries) < 2 {
			continue
		}
		counties[state] = entries[1:]
	}
	return counties, nil
}
