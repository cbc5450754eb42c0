package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"telecom-assistant/internal/models"
)

const maxHeadingWords = 8

var (
	headingRe      = regexp.MustCompile(models.HeadingRegex)
	upperHeadingRe = regexp.MustCompile(models.UpperHeadingRegex)
)

// Section is a run of page lines that share the same heading. Offset is the
// rune offset of its first line in the normalized page.
type Section struct {
	Title  string
	Text   string
	Offset int
}

type sectionState struct {
	title  string
	lines  []string
	start  int
	pos    int
	result []Section
}

// SplitSections normalizes a page and groups its lines under the headings they follow.
// title is the heading still open from the previous page; the heading open at
// the end of this page is returned so it can be carried to the next one.
func SplitSections(pageText, title string) ([]Section, string) {
	state := sectionState{title: title}
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		processLine(line, &state)
	}
	flushSection(&state)
	return state.result, state.title
}

func processLine(line string, state *sectionState) {
	if heading, ok := HeadingTitle(line); ok {
		flushSection(state)
		state.title = heading
		state.start = state.pos
	}
	// heading lines stay in the text so no page content is lost
	state.lines = append(state.lines, line)
	state.pos += utf8.RuneCountInString(line) + 1
}

func flushSection(state *sectionState) {
	if len(state.lines) > 0 {
		state.result = append(state.result, Section{
			Title:  state.title,
			Text:   strings.Join(state.lines, "\n"),
			Offset: state.start,
		})
	}
	state.lines = nil
	state.start = state.pos
}

// HeadingTitle reports whether line looks like a manual heading and returns its title.
func HeadingTitle(line string) (string, bool) {
	if len(strings.Fields(line)) > maxHeadingWords {
		return "", false
	}
	if m := headingRe.FindStringSubmatch(line); m != nil {
		if strings.ContainsAny(line[len(line)-1:], ".:;,?!") {
			return "", false
		}
		// a bare number is a quantity ("30 Days validity"), not a heading
		if !strings.Contains(m[1], ".") && m[2] == "" {
			return "", false
		}
		return m[1] + " " + strings.TrimSpace(m[3]), true
	}
	if upperHeadingRe.MatchString(line) && countLetters(line) >= 2 {
		return line, true
	}
	return "", false
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
