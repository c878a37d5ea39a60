package filterlist

import (
	"bufio"
	"io"
	"strings"
)

// RuleScanner reads a subscription body line by line.  Lines are returned
// trimmed; classification is left to the parser.
type RuleScanner struct {
	sc *bufio.Scanner
}

// NewRuleScanner creates a scanner over r.  The buffer is large enough for
// the longest lines found in real subscription lists.
func NewRuleScanner(r io.Reader) *RuleScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &RuleScanner{sc: sc}
}

// Scan advances to the next line.  It returns false on the end of input or
// on a read error.
func (s *RuleScanner) Scan() bool {
	return s.sc.Scan()
}

// Line returns the current line with surrounding whitespace removed.
func (s *RuleScanner) Line() string {
	return strings.TrimSpace(s.sc.Text())
}

// Err returns the first error encountered while reading.
func (s *RuleScanner) Err() error {
	return s.sc.Err()
}
