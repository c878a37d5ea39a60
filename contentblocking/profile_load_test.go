package contentblocking

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/Emdek/otter-browser/contentblocking/rules"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loadTestRulesCount = 20000

// buildLoadTestList generates a synthetic subscription in the shape of a real
// one: domain-anchored rules, path rules with type options, and a sprinkle of
// exceptions and cosmetic filters.
func buildLoadTestList() string {
	var sb strings.Builder
	sb.WriteString("[Adblock Plus 2.0]\n! Title: Synthetic List\n")

	for i := 0; i < loadTestRulesCount; i++ {
		switch i % 4 {
		case 0:
			fmt.Fprintf(&sb, "||ads%d.example.org^\n", i)
		case 1:
			fmt.Fprintf(&sb, "/banners/%d/*$image\n", i)
		case 2:
			fmt.Fprintf(&sb, "||cdn%d.test^$script,third-party\n", i)
		default:
			fmt.Fprintf(&sb, "@@||trusted%d.example.org^\n", i)
		}
	}

	sb.WriteString("##.ad-banner\n")

	return sb.String()
}

func TestLoadProfilePerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping the load test in short mode")
	}

	debug.SetGCPercent(10)
	defer debug.SetGCPercent(100)

	m := newTestManager(t, rules.AllFilters)
	writeProfileFile(t, m, "synthetic", buildLoadTestList())

	startHeap, startRSS := alloc(t)
	t.Logf(
		"Allocated before loading rules (heap/RSS, kiB): %d/%d",
		startHeap,
		startRSS,
	)

	startParse := time.Now()
	p := m.AddProfile(ProfileConfig{Name: "synthetic"})
	require.True(t, p.LoadRules())
	t.Logf("Elapsed on parsing rules: %v", time.Since(startParse))

	assert.Equal(t, loadTestRulesCount, p.RulesCount())

	loadHeap, loadRSS := alloc(t)
	t.Logf(
		"Allocated after loading rules (heap/RSS, kiB): %d/%d (%d/%d diff)",
		loadHeap,
		loadRSS,
		loadHeap-startHeap,
		loadRSS-startRSS,
	)

	totalElapsed := time.Duration(0)
	totalMatches := 0
	requestsCount := 1000

	for i := 0; i < requestsCount; i++ {
		requestURL := fmt.Sprintf("http://ads%d.example.org/banner.gif", i*4)

		startMatch := time.Now()
		res := p.CheckURL("http://site.test/", requestURL, rules.ImageType)
		totalElapsed += time.Since(startMatch)

		if res.IsBlocked {
			totalMatches++
		}
	}

	assert.Equal(t, requestsCount, totalMatches)

	t.Logf("Total matches: %d", totalMatches)
	t.Logf("Total elapsed: %v", totalElapsed)
	t.Logf("Average per request: %v", totalElapsed/time.Duration(requestsCount))
}

func alloc(t *testing.T) (heap, rss uint64) {
	p, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)

	mi, err := p.MemoryInfo()
	require.NoError(t, err)

	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)

	return ms.Alloc / 1024, mi.RSS / 1024
}
