package recommend

import (
	"regexp"
	"strings"

	"github.com/drakeRAGE/movie-recommendation-app/internal/model"
	"github.com/drakeRAGE/movie-recommendation-app/internal/prompt"
)

// ParsedLine is the outcome of parsing one non-blank line of a model reply:
// either Movie is set, or Skip says why the line was dropped.
type ParsedLine struct {
	Line  int // 1-based line number in the reply
	Movie *model.Movie
	Skip  string
}

// Valid reports whether the line produced a movie.
func (p ParsedLine) Valid() bool { return p.Movie != nil }

// Skip reasons.
const (
	skipNoDelimiter = "no delimiter"
	skipNoTitle     = "missing title"
	skipHeader      = "header row"
	skipFence       = "code fence"
	skipSeparator   = "table separator"
)

var (
	// listMarker matches "1. ", "2) ", "- ", "* " and "• " prefixes.
	listMarker = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+`)
	// tableSeparator matches markdown table rules such as "|---|:---:|".
	tableSeparator = regexp.MustCompile(`^\|[\s:|-]*-[\s:|-]*\|$`)
	// strongEmphasis matches a **bold** or __bold__ span.
	strongEmphasis = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
)

// ParseReply splits a model reply into lines and parses each one.
// Blank lines are ignored entirely; every other line yields a ParsedLine, in
// reply order.
func ParseReply(raw string) []ParsedLine {
	var out []ParsedLine
	for i, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ParseLine(i+1, line))
	}
	return out
}

// ParseLine parses a single "Title | Year | Reason" line.
func ParseLine(n int, line string) ParsedLine {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "```") {
		return ParsedLine{Line: n, Skip: skipFence}
	}
	if tableSeparator.MatchString(line) {
		return ParsedLine{Line: n, Skip: skipSeparator}
	}
	line = listMarker.ReplaceAllString(line, "")
	line = trimTableRow(line)

	if !strings.Contains(line, prompt.Delimiter) {
		return ParsedLine{Line: n, Skip: skipNoDelimiter}
	}

	// SplitN keeps any extra delimiters inside the reason.
	fields := strings.SplitN(line, prompt.Delimiter, 3)
	title := cleanTitle(fields[0])
	if title == "" {
		return ParsedLine{Line: n, Skip: skipNoTitle}
	}

	var year, reason string
	if len(fields) > 1 {
		year = cleanYear(fields[1])
	}
	if len(fields) > 2 {
		reason = strings.TrimSpace(fields[2])
	}

	if strings.EqualFold(title, "title") && strings.EqualFold(year, "year") {
		return ParsedLine{Line: n, Skip: skipHeader}
	}

	return ParsedLine{Line: n, Movie: &model.Movie{
		Title:  title,
		Year:   optional(year),
		Reason: optional(reason),
	}}
}

// trimTableRow turns a markdown table row "| a | b | c |" into "a | b | c".
// Only lines both opening and closing with the delimiter are rows; a line
// like " | 1986 | x" is a row with no title and is left alone.
func trimTableRow(line string) string {
	if len(line) < 2 || !strings.HasPrefix(line, prompt.Delimiter) || !strings.HasSuffix(line, prompt.Delimiter) {
		return line
	}
	line = strings.TrimPrefix(line, prompt.Delimiter)
	return strings.TrimSuffix(line, prompt.Delimiter)
}

// cleanTitle strips whitespace, markdown emphasis and wrapping quotes.
// Case and inner spacing are left alone.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strongEmphasis.ReplaceAllString(s, "$1$2")
	s = strings.Trim(s, "*_")
	s = strings.Trim(s, `"'“”`)
	return strings.TrimSpace(s)
}

// cleanYear trims and removes wrapping parentheses, e.g. "(1979)" → "1979".
// The year is not otherwise validated.
func cleanYear(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	return strings.TrimSpace(s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// validMovies collects the movies from parsed lines, keeping reply order.
func validMovies(lines []ParsedLine) []model.Movie {
	movies := make([]model.Movie, 0, len(lines))
	for _, l := range lines {
		if l.Valid() {
			movies = append(movies, *l.Movie)
		}
	}
	return movies
}
