// Package prompt turns a user's free-text movie preference into the
// instructions sent to the completion model.
//
// The instruction text and the reply parser in package recommend form one
// contract: if the wording of the output format changes here, bump Version
// and update the parser together.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Version identifies the output format the instructions ask for.
const Version = "v1"

// MaxMovies is the upper bound on suggestions asked for and returned.
const MaxMovies = 10

// Delimiter separates the title, year and reason fields on each reply line.
const Delimiter = "|"

// ErrEmptyQuery is returned by NewQuery for empty or whitespace-only input.
var ErrEmptyQuery = errors.New("query must be a non-empty string")

// Query is a validated user preference. The zero value is not valid;
// construct one with NewQuery.
type Query struct {
	raw string
}

// NewQuery trims the input and rejects it if nothing is left.
func NewQuery(raw string) (Query, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Query{}, ErrEmptyQuery
	}
	return Query{raw: trimmed}, nil
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.raw }

// Spec is the fully formed request content for one completion call.
type Spec struct {
	Version            string
	SystemInstructions string
	UserText           string
	MaxMovies          int
}

// Build creates the Spec for a query. It is a pure function: the same query
// always yields an identical Spec.
func Build(q Query) Spec {
	return Spec{
		Version:            Version,
		SystemInstructions: systemInstructions,
		UserText:           userText(q.raw),
		MaxMovies:          MaxMovies,
	}
}

var systemInstructions = strings.Join([]string{
	"You are a movie recommendation assistant.",
	"",
	"Task:",
	"Read the user's description of what they feel like watching and suggest movies that fit it.",
	"",
	"Output format:",
	fmt.Sprintf("- Return between 1 and %d suggestions, best match first.", MaxMovies),
	fmt.Sprintf("- Write exactly one suggestion per line as: Title %s Year %s Reason", Delimiter, Delimiter),
	"- Year is the four-digit release year. Leave it empty if you are not sure.",
	"- Reason is one short sentence on why the movie fits. It may be empty.",
	fmt.Sprintf("- Do not use the %q character inside a title or reason.", Delimiter),
	"- Do not number the lines, add headings, markdown, or any other text.",
	"",
	"Example:",
	fmt.Sprintf("Alien %s 1979 %s Ripley is one of the defining female action leads.", Delimiter, Delimiter),
	fmt.Sprintf("Mad Max: Fury Road %s 2015 %s Furiosa drives the story as much as Max does.", Delimiter, Delimiter),
}, "\n")

func userText(query string) string {
	return fmt.Sprintf("User preference: %s\nReturn at most %d suggestions in the format above.", query, MaxMovies)
}
