// Package lookup implements the character-indexed rule tree used to match
// request URLs against the loaded network rules.
//
// The tree compresses the set of all literal rule patterns: matching cost is
// proportional to the URL length, not to the number of loaded rules, for the
// common case of plain substring rules.  Three kinds of child edges coexist
// at every node: ordinary character edges, the wildcard edge '*' which
// matches any run of characters, and the separator edge '^' which matches a
// single character that is neither alphanumeric nor one of "_-.%", as well as
// the end of the URL.
package lookup

import (
	"github.com/Emdek/otter-browser/contentblocking/rules"
)

// node is a single tree node.  Children are kept in a small ordered slice
// rather than a map: per-node fan-out is low, and separator children must
// stay ahead of the others so that the separator alternative is tried first
// during the descent.
type node struct {
	children []*node
	rules    []*rules.Rule
	value    byte
}

// RuleTree stores network rules indexed by their residual pattern.
type RuleTree struct {
	root *node

	// RulesCount is the number of rules added to the tree.
	RulesCount int
}

// NewRuleTree creates an empty rule tree.  An empty tree is valid and yields
// a pass for every request.
func NewRuleTree() *RuleTree {
	return &RuleTree{root: &node{}}
}

// Add inserts the rule under its residual pattern.  Duplicate rules are
// retained, the matcher tolerates them.
func (t *RuleTree) Add(f *rules.Rule) {
	n := t.root
	pattern := f.Pattern()

	for i := 0; i < len(pattern); i++ {
		n = n.child(pattern[i])
	}

	n.rules = append(n.rules, f)
	t.RulesCount++
}

// child returns the child node carrying c, creating it when needed.  New
// separator children are inserted at the front of the list.
func (n *node) child(c byte) *node {
	for _, next := range n.children {
		if next.value == c {
			return next
		}
	}

	next := &node{value: c}
	if c == '^' {
		n.children = append([]*node{next}, n.children...)
	} else {
		n.children = append(n.children, next)
	}

	return next
}

// Match walks the tree against every suffix of the request URL.  The first
// matching exception rule anywhere in the walk wins and is returned
// immediately; otherwise the most recent block result is returned.
func (t *RuleTree) Match(r *rules.Request) (res rules.CheckResult) {
	for i := 0; i < len(r.URL); i++ {
		current := t.root.match(r.URL[i:], "", r)

		if current.IsException {
			return current
		}

		if current.IsBlocked {
			res = current
		}
	}

	return res
}

// match descends the tree against rest, accumulating the matched pattern
// text in currentRule.  Rules attached to a node are evaluated before the
// next URL character is consumed.
func (n *node) match(rest, currentRule string, r *rules.Request) (res rules.CheckResult) {
	for i := 0; i < len(rest); i++ {
		c := rest[i]

		current := n.evaluateRules(currentRule, r)
		if current.IsException {
			return current
		} else if current.IsBlocked {
			res = current
		}

		var next *node

		for _, ch := range n.children {
			if ch.value == '*' {
				// The wildcard edge is explored for every split of the
				// remaining URL slice, including the empty remainder.
				tail := rest[i:]
				for k := 0; k <= len(tail); k++ {
					current = ch.match(tail[k:], currentRule+tail[:k], r)
					if current.IsException {
						return current
					} else if current.IsBlocked {
						res = current
					}
				}
			}

			if ch.value == '^' && isSeparator(c) {
				current = ch.match(rest[i+1:], currentRule+string(c), r)
				if current.IsException {
					return current
				} else if current.IsBlocked {
					res = current
				}
			}

			// The scan goes on past a literal match so that a wildcard
			// sibling stored after it is still explored.
			if ch.value == c {
				next = ch
			}
		}

		if next == nil {
			return res
		}

		n = next
		currentRule += string(c)
	}

	current := n.evaluateRules(currentRule, r)
	if current.IsException {
		return current
	} else if current.IsBlocked {
		res = current
	}

	// A trailing separator is a valid match at the end of the URL.
	for _, ch := range n.children {
		if ch.value != '^' {
			continue
		}

		current = ch.evaluateRules(currentRule, r)
		if current.IsException {
			return current
		} else if current.IsBlocked {
			res = current
		}
	}

	return res
}

// evaluateRules checks every rule attached to the node, in insertion order.
func (n *node) evaluateRules(currentRule string, r *rules.Request) (res rules.CheckResult) {
	for _, f := range n.rules {
		current := f.Match(currentRule, r)

		if current.IsException {
			return current
		} else if current.IsBlocked {
			res = current
		}
	}

	return res
}

// isSeparator reports whether c can be matched by a separator edge.
func isSeparator(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '_', c == '-', c == '.', c == '%':
		return false
	}

	return true
}
