package contentblocking

import (
	"strings"

	"github.com/AdguardTeam/golibs/log"
	"github.com/Emdek/otter-browser/contentblocking/rules"
)

// parseRuleLine classifies one non-header line and either inserts a network
// rule into the tree or appends to the cosmetic tables.  Must be called with
// the profile lock held.
func (p *Profile) parseRuleLine(line string) {
	if line == "" || strings.HasPrefix(line, "!") {
		return
	}

	mode := p.manager.cosmeticFiltersMode

	if strings.HasPrefix(line, "##") {
		if mode == rules.AllFilters {
			p.cosmeticRules = append(p.cosmeticRules, line[2:])
		}

		return
	}

	if i := strings.Index(line, "##"); i >= 0 {
		if mode != rules.NoFilters {
			addCosmeticRule(p.cosmeticDomainRules, line[:i], line[i+2:])
		}

		return
	}

	if i := strings.Index(line, "#@#"); i >= 0 {
		if mode != rules.NoFilters {
			addCosmeticRule(p.cosmeticDomainExceptions, line[:i], line[i+3:])
		}

		return
	}

	f, err := rules.NewNetworkRule(line, p.manager.enableWildcards)
	if err != nil {
		// Parse failures are local: the bad line is dropped and loading
		// continues.
		log.Debug("contentblocking: %s: dropping rule %q: %s", p.name, line, err)

		return
	}

	p.tree.Add(f)
}

// addCosmeticRule splits the domain list of a domain-scoped cosmetic rule
// and records the selector for each domain.
func addCosmeticRule(table map[string][]string, domains, selector string) {
	for _, domain := range strings.Split(domains, ",") {
		table[domain] = append(table[domain], selector)
	}
}
