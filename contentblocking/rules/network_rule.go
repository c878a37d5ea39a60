package rules

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	maskException    = "@@"
	maskDomainAnchor = "||"
	optionsDelimiter = '$'
	escapeCharacter  = '\\'
)

// ErrWildcardsDisabled is returned when a rule pattern still contains a
// wildcard after stripping and wildcard support is turned off.
var ErrWildcardsDisabled errors.Error = "wildcard rules are disabled"

// RuleOption is the enumeration of recognized rule option tokens.  Options
// are stored as flags, a 16-bit field is enough for the whole vocabulary.
type RuleOption uint16

// RuleOption enumeration
const (
	OptionThirdParty RuleOption = 1 << iota // $third-party modifier
	OptionStyleSheet                        // $stylesheet modifier
	OptionImage                             // $image modifier
	OptionScript                            // $script modifier
	OptionObject                            // $object modifier
	OptionObjectSubrequest                  // $object-subrequest modifier
	OptionSubdocument                       // $subdocument modifier
	OptionXMLHttpRequest                    // $xmlhttprequest modifier
	OptionWebSocket                         // $websocket modifier
	OptionPopup                             // $popup modifier
	OptionElementHide                       // $elemhide modifier, exception rules only
	OptionGenericHide                       // $generichide modifier, exception rules only

	// NoOption is the empty option set.
	NoOption RuleOption = 0

	// typeOptions are the options that restrict a rule to particular
	// resource types.
	typeOptions = OptionStyleSheet | OptionImage | OptionScript | OptionObject |
		OptionObjectSubrequest | OptionSubdocument | OptionXMLHttpRequest |
		OptionWebSocket | OptionPopup
)

// ruleOptions maps option tokens to their flags.  Note the two accepted
// spellings of object-subrequest.
var ruleOptions = map[string]RuleOption{
	"third-party":       OptionThirdParty,
	"stylesheet":        OptionStyleSheet,
	"image":             OptionImage,
	"script":            OptionScript,
	"object":            OptionObject,
	"object-subrequest": OptionObjectSubrequest,
	"object_subrequest": OptionObjectSubrequest,
	"subdocument":       OptionSubdocument,
	"xmlhttprequest":    OptionXMLHttpRequest,
	"websocket":         OptionWebSocket,
	"popup":             OptionPopup,
	"elemhide":          OptionElementHide,
	"generichide":       OptionGenericHide,
}

// Rule is a single parsed network filtering rule.  Rules are immutable once
// parsed and may be shared between goroutines.
type Rule struct {
	// Text is the original rule line, echoed back in CheckResult.
	Text string

	// BlockedDomains is the list of domains from the $domain modifier that
	// the rule is limited to.
	BlockedDomains []string

	// AllowedDomains is the list of negated (~) domains from the $domain
	// modifier that the rule must not apply on.
	AllowedDomains []string

	// pattern is the residual pattern after all anchors and wildcards have
	// been consumed; this is what gets inserted into the filter tree.
	pattern string

	// MatchMode determines how the accumulated pattern is compared against
	// the request URL.
	MatchMode MatchMode

	// Options and Exceptions are the positive and negated option sets.  The
	// two are disjoint for options that do not support negation (websocket,
	// popup).
	Options    RuleOption
	Exceptions RuleOption

	// IsException is true for @@ rules.
	IsException bool

	// NeedsDomainCheck is true for || rules: the pattern text up to the
	// first host boundary character must match a suffix of the request host.
	NeedsDomainCheck bool
}

// NewNetworkRule parses a single network filtering rule line.  It returns an
// error for lines that must be dropped: rules with unknown option tokens, and
// wildcard rules when enableWildcards is false.
func NewNetworkRule(text string, enableWildcards bool) (r *Rule, err error) {
	pattern, options := splitPatternOptions(text)

	// Leading and trailing wildcards are equivalent to substring matching.
	pattern = strings.TrimSuffix(pattern, "*")
	pattern = strings.TrimPrefix(pattern, "*")

	if !enableWildcards && strings.Contains(pattern, "*") {
		return nil, ErrWildcardsDisabled
	}

	r = &Rule{Text: text}

	if strings.HasPrefix(pattern, maskException) {
		r.IsException = true
		pattern = pattern[len(maskException):]
	}

	if strings.HasPrefix(pattern, maskDomainAnchor) {
		r.NeedsDomainCheck = true
		pattern = pattern[len(maskDomainAnchor):]
	}

	if strings.HasPrefix(pattern, "|") {
		r.MatchMode = MatchStart
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "|") {
		if r.MatchMode == MatchStart {
			r.MatchMode = MatchExact
		} else {
			r.MatchMode = MatchEnd
		}
		pattern = pattern[:len(pattern)-1]
	}

	for _, option := range strings.Split(options, ",") {
		if option == "" {
			continue
		}

		if err = r.loadOption(option); err != nil {
			return nil, err
		}
	}

	r.pattern = pattern

	return r, nil
}

// Pattern returns the residual pattern that is inserted into the filter tree.
func (f *Rule) Pattern() string {
	return f.pattern
}

// String returns the original rule text.
func (f *Rule) String() string {
	return f.Text
}

// loadOption parses one comma-separated option token.
func (f *Rule) loadOption(option string) error {
	negated := strings.HasPrefix(option, "~")
	name := option
	if negated {
		name = option[1:]
	}

	if opt, ok := ruleOptions[name]; ok {
		// elemhide and generichide only make sense on exception rules and
		// cannot be negated.
		if opt == OptionElementHide || opt == OptionGenericHide {
			if !f.IsException || negated {
				return nil
			}
		}

		if !negated {
			f.Options |= opt
		} else if opt != OptionWebSocket && opt != OptionPopup {
			f.Exceptions |= opt
		}

		return nil
	}

	if strings.HasPrefix(name, "domain") {
		value := option
		if i := strings.IndexByte(option, '='); i >= 0 {
			value = option[i+1:]
		}

		for _, d := range strings.Split(value, "|") {
			if d == "" {
				continue
			}

			if strings.HasPrefix(d, "~") {
				f.AllowedDomains = append(f.AllowedDomains, d[1:])
			} else {
				f.BlockedDomains = append(f.BlockedDomains, d)
			}
		}

		return nil
	}

	return fmt.Errorf("unknown filter modifier: %s", option)
}

// splitPatternOptions splits the rule text on the first unescaped options
// delimiter.  The options part is empty when there's no delimiter.
func splitPatternOptions(text string) (pattern, options string) {
	for i := 0; i < len(text); i++ {
		if text[i] != optionsDelimiter {
			continue
		}

		if i > 0 && text[i-1] == escapeCharacter {
			continue
		}

		return text[:i], text[i+1:]
	}

	return text, ""
}
