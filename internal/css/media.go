package css

import (
	"fmt"
	"strings"
)

// MediaVerdict is the outcome of classifying a media condition.
type MediaVerdict int

const (
	// MediaDisallowed rules are dropped: neither inlined nor preserved.
	MediaDisallowed MediaVerdict = iota
	// MediaAllowed rules are preserved verbatim in a <style> element.
	MediaAllowed
)

func (v MediaVerdict) String() string {
	if v == MediaAllowed {
		return "allowed"
	}
	return "disallowed"
}

// MediaPolicy lists the media types the engine can honor statically.
type MediaPolicy struct {
	Allowed    map[string]bool
	Disallowed map[string]bool
}

// DefaultMediaPolicy allows screen-like media and drops everything targeting
// other devices.
func DefaultMediaPolicy() MediaPolicy {
	return MediaPolicy{
		Allowed: map[string]bool{"all": true, "screen": true},
		Disallowed: map[string]bool{
			"aural": true, "braille": true, "embossed": true, "handheld": true,
			"print": true, "projection": true, "speech": true, "tty": true, "tv": true,
		},
	}
}

// Classify decides what to do with a media rule given its condition (the
// text between "@media" and "{"). A comma separated list is allowed when any
// of its queries is. Conditions the policy cannot evaluate are reported with
// ErrUnresolvableMedia and classified as disallowed.
func (mp MediaPolicy) Classify(condition string) (MediaVerdict, error) {
	var unresolved error
	for _, query := range splitMediaQueries(condition) {
		verdict, err := mp.classifyQuery(query)
		if verdict == MediaAllowed {
			return MediaAllowed, nil
		}
		if err != nil && unresolved == nil {
			unresolved = err
		}
	}
	return MediaDisallowed, unresolved
}

func (mp MediaPolicy) classifyQuery(query string) (MediaVerdict, error) {
	words, ok := mediaWords(query)
	if !ok {
		return MediaDisallowed, fmt.Errorf("%w: %q: unbalanced parentheses", ErrUnresolvableMedia, query)
	}
	if len(words) > 0 && words[0] == "only" {
		words = words[1:]
	}
	if len(words) == 0 {
		// no media type at all means every medium
		return MediaAllowed, nil
	}

	mediaType := words[0]
	rest := words[1:]
	if mediaType == "and" {
		// "(min-width: 1px) and (max-width: 2px)" - features only
		mediaType, rest = "", words
	}
	for _, w := range rest {
		if w != "and" {
			return MediaDisallowed, fmt.Errorf("%w: %q: unexpected %q", ErrUnresolvableMedia, query, w)
		}
	}

	switch {
	case mediaType == "":
		return MediaAllowed, nil
	case mp.Allowed[mediaType]:
		return MediaAllowed, nil
	case mp.Disallowed[mediaType]:
		return MediaDisallowed, nil
	}
	return MediaDisallowed, fmt.Errorf("%w: %q: unknown media type %q", ErrUnresolvableMedia, query, mediaType)
}

// splitMediaQueries splits a media query list on top-level commas.
func splitMediaQueries(condition string) []string {
	var (
		queries []string
		depth   int
		start   int
	)
	for i, r := range condition {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				queries = append(queries, condition[start:i])
				start = i + 1
			}
		}
	}
	return append(queries, condition[start:])
}

// mediaWords lower-cases the query and returns its words with every
// parenthesized feature test removed.
func mediaWords(query string) ([]string, bool) {
	var (
		sb    strings.Builder
		depth int
	)
	for _, r := range strings.ToLower(query) {
		switch {
		case r == '(':
			depth++
			sb.WriteByte(' ')
		case r == ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, false
	}
	return strings.Fields(sb.String()), true
}
