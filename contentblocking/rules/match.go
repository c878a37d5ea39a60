package rules

import "strings"

// hostBoundary is the set of characters that terminate the host portion of a
// pattern checked by the || anchor.
const hostBoundary = ":?&/="

// Match evaluates the rule against the request, where currentRule is the
// pattern text accumulated by the tree walk.  It returns the zero CheckResult
// when the rule does not apply.
func (f *Rule) Match(currentRule string, r *Request) (res CheckResult) {
	switch f.MatchMode {
	case MatchStart:
		if !strings.HasPrefix(r.URL, currentRule) {
			return CheckResult{}
		}
	case MatchEnd:
		if !strings.HasSuffix(r.URL, currentRule) {
			return CheckResult{}
		}
	case MatchExact:
		if r.URL != currentRule {
			return CheckResult{}
		}
	default:
		// Containment is guaranteed by the walk itself, but is re-checked
		// to keep this function standalone.
		if !strings.Contains(r.URL, currentRule) {
			return CheckResult{}
		}
	}

	if f.NeedsDomainCheck && !containsString(r.Subdomains, hostPart(currentRule)) {
		return CheckResult{}
	}

	hasBlockedDomains := len(f.BlockedDomains) > 0
	hasAllowedDomains := len(f.AllowedDomains) > 0
	isBlocked := true

	if hasBlockedDomains && !matchDomainList(r.BaseHost, f.BlockedDomains) {
		return CheckResult{}
	}

	if hasAllowedDomains {
		isBlocked = !matchDomainList(r.BaseHost, f.AllowedDomains)
	}

	if (f.Options|f.Exceptions)&OptionThirdParty != 0 {
		if r.BaseHost == "" || containsString(r.Subdomains, r.BaseHost) {
			isBlocked = f.Exceptions&OptionThirdParty != 0
		} else if !hasBlockedDomains && !hasAllowedDomains {
			isBlocked = f.Options&OptionThirdParty != 0
		}
	}

	if (f.Options|f.Exceptions)&typeOptions != 0 {
		for _, m := range resourceTypeOptions {
			// WebSocket and popup do not support negation.
			supportsException := m.option != OptionWebSocket && m.option != OptionPopup

			if f.Options&m.option == 0 && !(supportsException && f.Exceptions&m.option != 0) {
				continue
			}

			switch {
			case r.ResourceType == m.resourceType:
				isBlocked = isBlocked && f.Options&m.option != 0
			case supportsException:
				isBlocked = isBlocked && f.Exceptions&m.option != 0
			default:
				isBlocked = false
			}
		}
	} else if r.ResourceType == PopupType {
		// Popups must be opted in with $popup.
		isBlocked = false
	}

	if !isBlocked {
		return CheckResult{}
	}

	res = CheckResult{Rule: f.Text}

	if f.IsException {
		res.IsException = true

		if f.Options&OptionElementHide != 0 {
			res.CosmeticFiltersMode = NoFilters
		} else if f.Options&OptionGenericHide != 0 {
			res.CosmeticFiltersMode = DomainOnlyFilters
		}

		return res
	}

	res.IsBlocked = true

	return res
}

// hostPart returns the pattern text up to the first host boundary character.
func hostPart(pattern string) string {
	if i := strings.IndexAny(pattern, hostBoundary); i >= 0 {
		return pattern[:i]
	}

	return pattern
}

// matchDomainList reports whether any of the listed domains is contained in
// the base host.
func matchDomainList(baseHost string, domains []string) bool {
	for _, d := range domains {
		if strings.Contains(baseHost, d) {
			return true
		}
	}

	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}

	return false
}
