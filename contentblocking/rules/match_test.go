package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, text string) *Rule {
	t.Helper()

	f, err := NewNetworkRule(text, true)
	require.NoError(t, err)

	return f
}

func TestMatchModes(t *testing.T) {
	r := NewRequest("", "http://example.org/banner.gif", ImageType)

	f := mustRule(t, "banner")
	assert.True(t, f.Match("banner", r).IsBlocked)

	f = mustRule(t, "|http://example.org")
	assert.True(t, f.Match("http://example.org", r).IsBlocked)
	assert.False(t, f.Match("example.org", r).IsBlocked)

	f = mustRule(t, "banner.gif|")
	assert.True(t, f.Match("banner.gif", r).IsBlocked)
	assert.False(t, f.Match("banner", r).IsBlocked)

	f = mustRule(t, "|http://example.org/banner.gif|")
	assert.True(t, f.Match("http://example.org/banner.gif", r).IsBlocked)
	assert.False(t, f.Match("http://example.org/banner", r).IsBlocked)
}

func TestMatchDomainAnchor(t *testing.T) {
	f := mustRule(t, "||ads.example.org^")
	r := NewRequest("http://site.test/", "http://ads.example.org/banner.gif", ImageType)

	assert.True(t, f.Match("ads.example.org/", r).IsBlocked)

	// The host part must be a suffix of the request host.
	r = NewRequest("http://site.test/", "http://notads.example.org/ads.example.org/x", ImageType)
	assert.False(t, f.Match("ads.example.org/", r).IsBlocked)
}

func TestMatchDomainScope(t *testing.T) {
	f := mustRule(t, "ads$domain=example.org")

	r := NewRequest("http://example.org/page", "http://cdn.test/ads/1", ScriptType)
	assert.True(t, f.Match("ads", r).IsBlocked)

	r = NewRequest("http://other.test/page", "http://cdn.test/ads/1", ScriptType)
	assert.False(t, f.Match("ads", r).IsBlocked)

	// A negated domain flips the decision to not-blocked.
	f = mustRule(t, "ads$domain=~example.org")
	r = NewRequest("http://example.org/page", "http://cdn.test/ads/1", ScriptType)
	assert.False(t, f.Match("ads", r).IsBlocked)

	r = NewRequest("http://other.test/page", "http://cdn.test/ads/1", ScriptType)
	assert.True(t, f.Match("ads", r).IsBlocked)
}

func TestMatchThirdParty(t *testing.T) {
	f := mustRule(t, "||cdn.test^$third-party")

	// First-party request, the base host is a suffix of the request host.
	r := NewRequest("http://cdn.test/", "http://cdn.test/a", ScriptType)
	assert.False(t, f.Match("cdn.test/", r).IsBlocked)

	// Third-party request.
	r = NewRequest("http://site.test/", "http://cdn.test/a", ScriptType)
	assert.True(t, f.Match("cdn.test/", r).IsBlocked)

	// No base URL at all counts as first-party.
	r = NewRequest("", "http://cdn.test/a", ScriptType)
	assert.False(t, f.Match("cdn.test/", r).IsBlocked)

	// ~third-party inverts the polarity.
	f = mustRule(t, "||cdn.test^$~third-party")
	r = NewRequest("http://cdn.test/", "http://cdn.test/a", ScriptType)
	assert.True(t, f.Match("cdn.test/", r).IsBlocked)
	r = NewRequest("http://site.test/", "http://cdn.test/a", ScriptType)
	assert.False(t, f.Match("cdn.test/", r).IsBlocked)
}

func TestMatchResourceTypes(t *testing.T) {
	f := mustRule(t, "/trackers/$script")

	r := NewRequest("http://x.test/", "http://x.test/trackers/a/b.js", ScriptType)
	assert.True(t, f.Match("/trackers/", r).IsBlocked)

	r = NewRequest("http://x.test/", "http://x.test/trackers/a/b.js", ImageType)
	assert.False(t, f.Match("/trackers/", r).IsBlocked)

	// A negated type applies the rule to everything else.
	f = mustRule(t, "/trackers/$~image")
	r = NewRequest("http://x.test/", "http://x.test/trackers/a/b.js", ScriptType)
	assert.True(t, f.Match("/trackers/", r).IsBlocked)
	r = NewRequest("http://x.test/", "http://x.test/trackers/p.gif", ImageType)
	assert.False(t, f.Match("/trackers/", r).IsBlocked)

	// An unmapped type is subject only to unrestricted rules.
	f = mustRule(t, "/trackers/$script")
	r = NewRequest("http://x.test/", "http://x.test/trackers/page", MainFrameType)
	assert.False(t, f.Match("/trackers/", r).IsBlocked)
}

func TestMatchPopupOptIn(t *testing.T) {
	// A rule without type options never applies to popups.
	f := mustRule(t, "ads")
	r := NewRequest("http://x.test/", "http://x.test/ads/win", PopupType)
	assert.False(t, f.Match("ads", r).IsBlocked)

	f = mustRule(t, "ads$popup")
	assert.True(t, f.Match("ads", r).IsBlocked)

	// $popup does not leak onto other types.
	r = NewRequest("http://x.test/", "http://x.test/ads/win", ImageType)
	assert.False(t, f.Match("ads", r).IsBlocked)
}

func TestMatchExceptionPolarity(t *testing.T) {
	f := mustRule(t, "@@||ads.example.org^")
	r := NewRequest("http://site.test/", "http://ads.example.org/ok", ImageType)

	res := f.Match("ads.example.org/", r)
	assert.True(t, res.IsException)
	assert.False(t, res.IsBlocked)
	assert.Equal(t, "@@||ads.example.org^", res.Rule)
	assert.Equal(t, AllFilters, res.CosmeticFiltersMode)

	f = mustRule(t, "@@||ads.example.org^$elemhide")
	res = f.Match("ads.example.org/", r)
	assert.True(t, res.IsException)
	assert.Equal(t, NoFilters, res.CosmeticFiltersMode)

	f = mustRule(t, "@@||ads.example.org^$generichide")
	res = f.Match("ads.example.org/", r)
	assert.True(t, res.IsException)
	assert.Equal(t, DomainOnlyFilters, res.CosmeticFiltersMode)
}
