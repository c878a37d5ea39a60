package filterutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHostname(t *testing.T) {
	assert.Equal(t, "example.org", ExtractHostname("http://example.org/"))
	assert.Equal(t, "example.org", ExtractHostname("https://example.org"))
	assert.Equal(t, "example.org", ExtractHostname("http://example.org:8080/page"))
	assert.Equal(t, "example.org", ExtractHostname("http://example.org?query=1"))
	assert.Equal(t, "example.org", ExtractHostname("//example.org/page"))
	assert.Equal(t, "", ExtractHostname(""))
	assert.Equal(t, "", ExtractHostname("/page?query=1"))
	assert.Equal(t, "", ExtractHostname("banner.gif"))
	assert.Equal(t, "", ExtractHostname("http://"))
}

func TestSubdomainList(t *testing.T) {
	assert.Equal(t, []string{"a.b.c", "b.c", "c"}, SubdomainList("a.b.c"))
	assert.Equal(t, []string{"example.org", "org"}, SubdomainList("example.org"))
	assert.Equal(t, []string{"localhost"}, SubdomainList("localhost"))
	assert.Nil(t, SubdomainList(""))
}
