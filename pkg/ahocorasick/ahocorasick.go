// Package ahocorasick implements case-insensitive multi-pattern substring
// matching with an Aho-Corasick automaton.
//
// The ruleset uses it to test a URL against every known-bad keyword and
// domain fragment in a single pass instead of one strings.Contains call per
// signature.
//
// Thread Safety: a Matcher is immutable once New returns and may be shared
// by any number of goroutines.
package ahocorasick

import "unicode"

// Matcher is a compiled automaton over a fixed pattern list.
type Matcher struct {
	root     *node
	patterns []string
}

type node struct {
	children map[rune]*node
	fail     *node
	output   []int // indices into patterns ending at this state
}

// New compiles patterns into a Matcher. Matching is case-insensitive.
// Empty patterns are kept in the index space but never match.
func New(patterns []string) *Matcher {
	m := &Matcher{
		root:     newNode(),
		patterns: append([]string(nil), patterns...),
	}
	for i, p := range m.patterns {
		if p == "" {
			continue
		}
		m.insert(p, i)
	}
	m.link()
	return m
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

func (m *Matcher) insert(pattern string, index int) {
	cur := m.root
	for _, r := range pattern {
		r = unicode.ToLower(r)
		next, ok := cur.children[r]
		if !ok {
			next = newNode()
			cur.children[r] = next
		}
		cur = next
	}
	cur.output = append(cur.output, index)
}

// link builds failure links breadth-first so that every node's output also
// carries the outputs of its longest proper suffix state.
func (m *Matcher) link() {
	queue := make([]*node, 0, len(m.root.children))
	for _, child := range m.root.children {
		child.fail = m.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for r, child := range cur.children {
			queue = append(queue, child)

			f := cur.fail
			for f != nil {
				if next, ok := f.children[r]; ok {
					child.fail = next
					child.output = append(child.output, next.output...)
					break
				}
				f = f.fail
			}
			if child.fail == nil {
				child.fail = m.root
			}
		}
	}
}

func (m *Matcher) step(cur *node, r rune) *node {
	for cur != m.root {
		if _, ok := cur.children[r]; ok {
			break
		}
		cur = cur.fail
	}
	if next, ok := cur.children[r]; ok {
		return next
	}
	return cur
}

// Match reports whether any pattern occurs in text.
func (m *Matcher) Match(text string) bool {
	cur := m.root
	for _, r := range text {
		cur = m.step(cur, unicode.ToLower(r))
		if len(cur.output) > 0 {
			return true
		}
	}
	return false
}

// MatchAll returns the set of pattern indices found in text, each at most
// once, in ascending index order.
func (m *Matcher) MatchAll(text string) []int {
	if len(m.patterns) == 0 {
		return nil
	}

	seen := make([]bool, len(m.patterns))
	found := 0
	cur := m.root
	for _, r := range text {
		cur = m.step(cur, unicode.ToLower(r))
		for _, idx := range cur.output {
			if !seen[idx] {
				seen[idx] = true
				found++
			}
		}
	}

	if found == 0 {
		return nil
	}
	out := make([]int, 0, found)
	for i, ok := range seen {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Pattern returns the pattern stored at index i.
func (m *Matcher) Pattern(i int) string {
	return m.patterns[i]
}

// PatternCount returns the number of compiled patterns.
func (m *Matcher) PatternCount() int {
	return len(m.patterns)
}
