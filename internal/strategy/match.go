package strategy

import (
	"sort"
	"strings"
)

// MatchResult holds the outcome of matching extracted tags against the store.
type MatchResult struct {
	// Strategies whose tag sets intersect the input tags, in store load
	// order, deduplicated by title.
	Strategies []Strategy
	// MatchedTags is the sorted set of input tags that participated in at
	// least one match. Used for transparency display only.
	MatchedTags []string
}

// Match returns every strategy whose tags intersect the input tags. Pure
// function, no I/O. Empty input tags or no intersection yields empty
// results; callers must render "no strategies matched" rather than omit
// the section.
func Match(store *Store, tags []string) MatchResult {
	if store == nil || len(tags) == 0 {
		return MatchResult{}
	}

	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[normalizeTag(t)] = true
	}

	var result MatchResult
	seenTitles := make(map[string]bool)
	matchedTags := make(map[string]bool)

	for _, s := range store.All() {
		matched := false
		for _, st := range s.Tags {
			norm := normalizeTag(st)
			if tagSet[norm] {
				matched = true
				matchedTags[norm] = true
			}
		}
		if matched && !seenTitles[s.Title] {
			seenTitles[s.Title] = true
			result.Strategies = append(result.Strategies, s)
		}
	}

	for t := range matchedTags {
		result.MatchedTags = append(result.MatchedTags, t)
	}
	sort.Strings(result.MatchedTags)

	return result
}

// FormatBullets renders strategies as a bullet list for prompt assembly.
func FormatBullets(strategies []Strategy) string {
	var sb strings.Builder
	for _, s := range strategies {
		sb.WriteString("- ")
		sb.WriteString(s.Title)
		sb.WriteString(": ")
		sb.WriteString(s.Description)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Titles returns the strategy titles in order.
func Titles(strategies []Strategy) []string {
	titles := make([]string, len(strategies))
	for i, s := range strategies {
		titles[i] = s.Title
	}
	return titles
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
