package chunker

import (
	"regexp"
	"strings"

	"github.com/dgallion1/wikigest/internal/doctree"
)

var headerRe = regexp.MustCompile(`^(#+)\s+(.*)$`)

// ParseStructure scans ATX-header markdown into a Section tree.
//
// A header line closes any pending paragraph and opens a new section; a
// stack resolves nesting, so a jump from level 1 straight to level 3 simply
// nests under the nearest level-1 ancestor; malformed nesting is never an
// error. Non-header lines accumulate into a paragraph that a blank line (or
// the next header) flushes, with accumulated lines joined by single spaces.
// A document with no headers yields a root holding all paragraphs.
func ParseStructure(raw string) *doctree.Section {
	root := &doctree.Section{}
	stack := []*doctree.Section{root}
	current := root

	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if p := strings.TrimSpace(strings.Join(pending, " ")); p != "" {
			current.Content = append(current.Content, p)
		}
		pending = pending[:0]
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}

		m := headerRe.FindStringSubmatch(line)
		if m == nil {
			pending = append(pending, line)
			continue
		}

		flush()
		level := len(m[1])
		title := strings.TrimSpace(m[2])

		// Pop to the nearest ancestor with a lower level.
		for len(stack) > 1 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]

		path := make([]string, 0, len(parent.Path)+1)
		path = append(path, parent.Path...)
		path = append(path, title)

		sec := &doctree.Section{Title: title, Level: level, Path: path}
		parent.Subsections = append(parent.Subsections, sec)
		stack = append(stack, sec)
		current = sec
	}
	flush()

	return root
}
