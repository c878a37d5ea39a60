package contentblocking

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Emdek/otter-browser/contentblocking/rules"
)

// contentBlockingDir is the subdirectory of the data directory that holds
// the cached subscription files.
const contentBlockingDir = "contentBlocking"

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Console receives error and diagnostic messages.  The default writes
	// to the process log.
	Console Console

	// HTTPClient performs subscription downloads.  http.DefaultClient is
	// used when nil.
	HTTPClient *http.Client

	// DataDir is the host data directory; profile files live in its
	// contentBlocking subdirectory.
	DataDir string

	// CosmeticFiltersMode gates which cosmetic rules are retained at parse
	// time.
	CosmeticFiltersMode rules.CosmeticFiltersMode

	// DisableWildcards drops rules whose pattern still contains '*' after
	// stripping.
	DisableWildcards bool
}

// Manager owns the set of active content blocking profiles and the
// process-wide parser configuration.
type Manager struct {
	console    Console
	httpClient *http.Client
	dataDir    string

	profiles map[string]*Profile
	order    []string

	cosmeticFiltersMode rules.CosmeticFiltersMode
	enableWildcards     bool
}

// NewManager creates a manager from the configuration.
func NewManager(c ManagerConfig) *Manager {
	console := c.Console
	if console == nil {
		console = logConsole{}
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Manager{
		console:             console,
		httpClient:          client,
		dataDir:             c.DataDir,
		profiles:            map[string]*Profile{},
		cosmeticFiltersMode: c.CosmeticFiltersMode,
		enableWildcards:     !c.DisableWildcards,
	}
}

// ProfilePath returns the path of the cached subscription file for name.
func (m *Manager) ProfilePath(name string) string {
	return filepath.Join(m.dataDir, contentBlockingDir, name+".txt")
}

// AddProfile constructs a profile from the configuration, registers it and
// scans its header.  A profile whose update interval has elapsed starts an
// update right away.
func (m *Manager) AddProfile(c ProfileConfig) *Profile {
	p := newProfile(m, c)

	if _, ok := m.profiles[p.Name()]; !ok {
		m.order = append(m.order, p.Name())
	}
	m.profiles[p.Name()] = p

	p.loadHeader()

	return p
}

// Profile returns the registered profile with the given name, or nil.
func (m *Manager) Profile(name string) *Profile {
	return m.profiles[name]
}

// Profiles returns the registered profiles in registration order.
func (m *Manager) Profiles() []*Profile {
	list := make([]*Profile, 0, len(m.order))
	for _, name := range m.order {
		list = append(list, m.profiles[name])
	}

	return list
}

// RemoveProfile unregisters the profile, cancels its in-flight update and
// deletes its cached file.
func (m *Manager) RemoveProfile(name string) error {
	p, ok := m.profiles[name]
	if !ok {
		return fmt.Errorf("no such profile: %s", name)
	}

	delete(m.profiles, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)

			break
		}
	}

	return p.Remove()
}

// CreateProfile writes a fresh subscription file seeded from rulesData (which
// may be nil) and registers a profile over it.  An existing file is only
// overwritten when canOverwrite is set.  A profile created empty with a valid
// update URL fetches its rules immediately.
func (m *Manager) CreateProfile(c ProfileConfig, rulesData io.Reader, canOverwrite bool) (p *Profile, err error) {
	path := m.ProfilePath(c.Name)

	if !canOverwrite {
		if _, serr := os.Stat(path); serr == nil {
			err = fmt.Errorf("profile file already exists: %s", path)
			m.console.AddMessage(err.Error(), OtherMessageCategory, ErrorLevel, path)

			return nil, err
		}
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.console.AddMessage(err.Error(), OtherMessageCategory, ErrorLevel, path)

		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		m.console.AddMessage(err.Error(), OtherMessageCategory, ErrorLevel, path)

		return nil, err
	}

	_, err = fmt.Fprintf(f, "[AdBlock Plus 2.0]\n! Title: %s\n", c.Title)
	if err == nil && rulesData != nil {
		_, err = io.Copy(f, rulesData)
	}

	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}

	if err != nil {
		m.console.AddMessage(err.Error(), OtherMessageCategory, ErrorLevel, path)

		return nil, err
	}

	p = m.AddProfile(c)

	if rulesData == nil && c.UpdateURL != "" {
		p.Update("")
	}

	return p, nil
}

// CheckURL combines the per-profile results for one request: an exception
// from any profile wins; otherwise the last block result is returned.
func (m *Manager) CheckURL(baseURL, requestURL string, resourceType rules.ResourceType) (res rules.CheckResult) {
	for _, name := range m.order {
		current := m.profiles[name].CheckURL(baseURL, requestURL, resourceType)

		if current.IsException {
			return current
		}

		if current.IsBlocked {
			res = current
		}
	}

	return res
}

// CosmeticFilters merges the cosmetic filters of every registered profile
// for the given page host suffixes.
func (m *Manager) CosmeticFilters(domains []string, domainOnly bool) (res CosmeticFiltersResult) {
	for _, name := range m.order {
		current := m.profiles[name].CosmeticFilters(domains, domainOnly)
		res.Rules = append(res.Rules, current.Rules...)
		res.Exceptions = append(res.Exceptions, current.Exceptions...)
	}

	return res
}

// CosmeticFiltersMode returns the process-wide cosmetic filtering mode the
// parser was configured with.
func (m *Manager) CosmeticFiltersMode() rules.CosmeticFiltersMode {
	return m.cosmeticFiltersMode
}

// updateIntervalElapsed reports whether lastUpdate is older than the update
// interval expressed in days.
func updateIntervalElapsed(lastUpdate time.Time, intervalDays int) bool {
	if intervalDays <= 0 {
		return false
	}

	return lastUpdate.IsZero() ||
		time.Since(lastUpdate) > time.Duration(intervalDays)*24*time.Hour
}
