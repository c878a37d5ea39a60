package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicRules(t *testing.T) {
	f, err := NewNetworkRule("||example.org^", true)
	require.NoError(t, err)
	assert.Equal(t, "||example.org^", f.Text)
	assert.Equal(t, "example.org^", f.Pattern())
	assert.Equal(t, MatchSubstring, f.MatchMode)
	assert.True(t, f.NeedsDomainCheck)
	assert.False(t, f.IsException)

	f, err = NewNetworkRule("@@||example.org^$third-party", true)
	require.NoError(t, err)
	assert.Equal(t, "example.org^", f.Pattern())
	assert.True(t, f.IsException)
	assert.True(t, f.NeedsDomainCheck)
	assert.Equal(t, OptionThirdParty, f.Options)
	assert.Equal(t, NoOption, f.Exceptions)

	f, err = NewNetworkRule("|http://example.org", true)
	require.NoError(t, err)
	assert.Equal(t, MatchStart, f.MatchMode)
	assert.Equal(t, "http://example.org", f.Pattern())

	f, err = NewNetworkRule("banner.gif|", true)
	require.NoError(t, err)
	assert.Equal(t, MatchEnd, f.MatchMode)
	assert.Equal(t, "banner.gif", f.Pattern())

	f, err = NewNetworkRule("|http://example.org/banner.gif|", true)
	require.NoError(t, err)
	assert.Equal(t, MatchExact, f.MatchMode)
	assert.Equal(t, "http://example.org/banner.gif", f.Pattern())
}

func TestParseWildcardStripping(t *testing.T) {
	f, err := NewNetworkRule("*abc*", true)
	require.NoError(t, err)
	assert.Equal(t, "abc", f.Pattern())

	// Stripping is idempotent: the residual pattern equals the plain rule.
	plain, err := NewNetworkRule("abc", true)
	require.NoError(t, err)
	assert.Equal(t, plain.Pattern(), f.Pattern())

	// A rule whose only wildcards are leading and trailing ones is kept even
	// with wildcards disabled; the wildcards themselves are stripped.
	f, err = NewNetworkRule("*abc*", false)
	require.NoError(t, err)
	assert.Equal(t, "abc", f.Pattern())

	// A rule with an inner wildcard is dropped.
	_, err = NewNetworkRule("a*c", false)
	assert.ErrorIs(t, err, ErrWildcardsDisabled)

	_, err = NewNetworkRule("a*c", true)
	assert.NoError(t, err)
}

func TestParseOptions(t *testing.T) {
	f, err := NewNetworkRule("ads$image,~third-party", true)
	require.NoError(t, err)
	assert.Equal(t, OptionImage, f.Options)
	assert.Equal(t, OptionThirdParty, f.Exceptions)

	f, err = NewNetworkRule("ads$object-subrequest", true)
	require.NoError(t, err)
	assert.Equal(t, OptionObjectSubrequest, f.Options)

	// The underscore spelling maps to the same flag.
	f, err = NewNetworkRule("ads$object_subrequest", true)
	require.NoError(t, err)
	assert.Equal(t, OptionObjectSubrequest, f.Options)

	// websocket and popup do not support negation; the token is dropped.
	f, err = NewNetworkRule("ads$~websocket,~popup", true)
	require.NoError(t, err)
	assert.Equal(t, NoOption, f.Options)
	assert.Equal(t, NoOption, f.Exceptions)

	// An unknown option silently discards the whole line.
	_, err = NewNetworkRule("ads$foobar", true)
	assert.Error(t, err)
}

func TestParseDomainOption(t *testing.T) {
	f, err := NewNetworkRule("ads$domain=example.org|~good.example.org|example.com", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.org", "example.com"}, f.BlockedDomains)
	assert.Equal(t, []string{"good.example.org"}, f.AllowedDomains)
}

func TestParseElementHideOptions(t *testing.T) {
	// elemhide and generichide are retained on exception rules only.
	f, err := NewNetworkRule("@@||example.org^$elemhide", true)
	require.NoError(t, err)
	assert.Equal(t, OptionElementHide, f.Options)

	f, err = NewNetworkRule("@@||example.org^$generichide", true)
	require.NoError(t, err)
	assert.Equal(t, OptionGenericHide, f.Options)

	f, err = NewNetworkRule("||example.org^$elemhide", true)
	require.NoError(t, err)
	assert.Equal(t, NoOption, f.Options)
	assert.Equal(t, NoOption, f.Exceptions)

	f, err = NewNetworkRule("@@||example.org^$~generichide", true)
	require.NoError(t, err)
	assert.Equal(t, NoOption, f.Options)
	assert.Equal(t, NoOption, f.Exceptions)
}

func TestSplitPatternOptions(t *testing.T) {
	pattern, options := splitPatternOptions("||example.org^$third-party")
	assert.Equal(t, "||example.org^", pattern)
	assert.Equal(t, "third-party", options)

	pattern, options = splitPatternOptions("||example.org^")
	assert.Equal(t, "||example.org^", pattern)
	assert.Equal(t, "", options)

	// An escaped dollar belongs to the pattern.
	pattern, options = splitPatternOptions(`/p\$ge$image`)
	assert.Equal(t, `/p\$ge`, pattern)
	assert.Equal(t, "image", options)
}
