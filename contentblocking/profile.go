package contentblocking

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Emdek/otter-browser/contentblocking/filterlist"
	"github.com/Emdek/otter-browser/contentblocking/lookup"
	"github.com/Emdek/otter-browser/contentblocking/rules"
)

// ProfileConfig describes one subscription as stored in the host registry.
type ProfileConfig struct {
	// Name is the filesystem-safe profile identifier.
	Name string

	// Title is the human-readable profile title.
	Title string

	// UpdateURL is the subscription download location.
	UpdateURL string

	// Languages is the list of locale tags the list targets.  Empty means
	// any language.
	Languages []string

	// LastUpdate is the time of the last successful update.
	LastUpdate time.Time

	// UpdateInterval is the automatic update interval in days; zero or
	// negative disables automatic updates.
	UpdateInterval int

	// Category groups the profile in the host UI.
	Category ProfileCategory

	// Flags carries the custom-title and custom-update-URL markers.
	Flags ProfileFlags
}

// Profile is one content blocking subscription: it owns the rule tree and
// the cosmetic filter tables built from its cached file, and mediates the
// load / update / remove lifecycle.
//
// All methods are safe to call from the owning goroutine only; the internal
// mutex exists to serialize the asynchronous update completion against
// matching, not to make the profile generally concurrent.
type Profile struct {
	// OnModified, when set, is invoked after every metadata change so
	// observers can refresh.  It is called with the profile lock held and
	// must not call back into the profile.
	OnModified func()

	manager *Manager
	mu      sync.Mutex

	name           string
	title          string
	updateURL      string
	languages      []string
	lastUpdate     time.Time
	updateInterval int
	category       ProfileCategory
	flags          ProfileFlags
	err            ProfileError

	tree                     *lookup.RuleTree
	cosmeticRules            []string
	cosmeticDomainRules      map[string][]string
	cosmeticDomainExceptions map[string][]string

	job *dataFetchJob

	isEmpty   bool
	wasLoaded bool
}

// newProfile constructs an unloaded profile; the manager scans the header
// right after registration.
func newProfile(m *Manager, c ProfileConfig) *Profile {
	return &Profile{
		manager:        m,
		name:           c.Name,
		title:          c.Title,
		updateURL:      c.UpdateURL,
		languages:      c.Languages,
		lastUpdate:     c.LastUpdate,
		updateInterval: c.UpdateInterval,
		category:       c.Category,
		flags:          c.Flags,
		isEmpty:        true,
	}
}

// Name returns the filesystem-safe profile identifier.
func (p *Profile) Name() string {
	return p.name
}

// Title returns the human-readable profile title.
func (p *Profile) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.title == "" {
		return "(Unknown)"
	}

	return p.title
}

// SetTitle overrides the title and marks it as custom so header scans no
// longer touch it.
func (p *Profile) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if title == p.title {
		return
	}

	p.title = title
	p.flags |= HasCustomTitleFlag
	p.modified()
}

// Path returns the location of the cached subscription file.
func (p *Profile) Path() string {
	return p.manager.ProfilePath(p.name)
}

// UpdateURL returns the effective subscription download location.
func (p *Profile) UpdateURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.updateURL
}

// SetUpdateURL overrides the update URL and marks it as custom.
func (p *Profile) SetUpdateURL(updateURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if updateURL == "" || updateURL == p.updateURL {
		return
	}

	p.updateURL = updateURL
	p.flags |= HasCustomUpdateURLFlag
	p.modified()
}

// Languages returns the locale tags the list targets; empty means any.
func (p *Profile) Languages() []string {
	return p.languages
}

// LastUpdate returns the time of the last successful update.
func (p *Profile) LastUpdate() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastUpdate
}

// Category returns the profile category.
func (p *Profile) Category() ProfileCategory {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.category
}

// SetCategory changes the profile category.
func (p *Profile) SetCategory(category ProfileCategory) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if category == p.category {
		return
	}

	p.category = category
	p.modified()
}

// UpdateInterval returns the automatic update interval in days.
func (p *Profile) UpdateInterval() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.updateInterval
}

// SetUpdateInterval changes the automatic update interval in days.
func (p *Profile) SetUpdateInterval(interval int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if interval == p.updateInterval {
		return
	}

	p.updateInterval = interval
	p.modified()
}

// Flags returns the profile flags.
func (p *Profile) Flags() ProfileFlags {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flags
}

// Error returns the last error recorded on the profile.
func (p *Profile) Error() ProfileError {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// IsLoaded reports whether the rule tree is currently built.
func (p *Profile) IsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.wasLoaded
}

// IsUpdating reports whether a fetch is in flight.
func (p *Profile) IsUpdating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.job != nil
}

// UpdateProgress returns the fetch progress in [0, 100], or -1 when no fetch
// is active.
func (p *Profile) UpdateProgress() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.job == nil {
		return -1
	}

	return p.job.currentProgress()
}

// RulesCount returns the number of network rules in the tree.
func (p *Profile) RulesCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tree == nil {
		return 0
	}

	return p.tree.RulesCount
}

// CheckURL matches one outbound request against the profile.  The profile is
// loaded lazily on the first check.
func (p *Profile) CheckURL(baseURL, requestURL string, resourceType rules.ResourceType) rules.CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.wasLoaded && !p.loadRules() {
		return rules.CheckResult{}
	}

	return p.tree.Match(rules.NewRequest(baseURL, requestURL, resourceType))
}

// CosmeticFilters returns the CSS selectors applicable to a page, given the
// page host's suffix list.  Global selectors are omitted when domainOnly is
// set.
func (p *Profile) CosmeticFilters(domains []string, domainOnly bool) (res CosmeticFiltersResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.wasLoaded {
		p.loadRules()
	}

	if !domainOnly {
		res.Rules = append(res.Rules, p.cosmeticRules...)
	}

	for _, domain := range domains {
		res.Rules = append(res.Rules, p.cosmeticDomainRules[domain]...)
		res.Exceptions = append(res.Exceptions, p.cosmeticDomainExceptions[domain]...)
	}

	return res
}

// Clear tears down the rule tree and the cosmetic tables.
func (p *Profile) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clear()
}

// clear must be called with the profile lock held.  The old tree is simply
// dropped: no matcher can observe it once the root reference is gone.
func (p *Profile) clear() {
	if !p.wasLoaded {
		return
	}

	p.tree = nil
	p.cosmeticRules = nil
	p.cosmeticDomainRules = nil
	p.cosmeticDomainExceptions = nil
	p.wasLoaded = false
}

// LoadRules builds the rule tree and cosmetic tables from the cached file.
// It reports false when the profile cannot be loaded yet: an empty file with
// an update URL schedules a fetch instead.
func (p *Profile) LoadRules() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.loadRules()
}

// loadRules must be called with the profile lock held.
func (p *Profile) loadRules() bool {
	p.err = NoError

	if p.isEmpty && p.updateURL != "" {
		p.update("")

		return false
	}

	f, err := os.Open(p.Path())
	if err != nil {
		p.raiseError(fmt.Sprintf("failed to open content blocking profile file: %s", err), ReadError)

		return false
	}
	defer func() { _ = f.Close() }()

	sc := filterlist.NewRuleScanner(f)
	if !sc.Scan() || !filterlist.IsAdblockHeader(sc.Line()) {
		p.raiseError("failed to load content blocking profile: invalid header", ParseError)

		return false
	}

	p.wasLoaded = true
	p.tree = lookup.NewRuleTree()
	p.cosmeticRules = nil
	p.cosmeticDomainRules = map[string][]string{}
	p.cosmeticDomainExceptions = map[string][]string{}

	for sc.Scan() {
		p.parseRuleLine(sc.Line())
	}

	if err = sc.Err(); err != nil {
		p.raiseError(fmt.Sprintf("failed to read content blocking profile file: %s", err), ReadError)
	}

	return true
}

// loadHeader scans the cached file header, picks up the title and the
// emptiness hint, and kicks off an update when the interval has elapsed.
func (p *Profile) loadHeader() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.scanHeader()

	if p.job == nil && updateIntervalElapsed(p.lastUpdate, p.updateInterval) {
		p.update("")
	}
}

// Update starts an asynchronous fetch of the subscription.  When updateURL
// is empty the profile's own URL is used.  It reports false if a fetch is
// already in flight or the URL is unusable.
func (p *Profile) Update(updateURL string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.update(updateURL)
}

// update must be called with the profile lock held.
func (p *Profile) update(updateURL string) bool {
	if p.job != nil {
		return false
	}

	effective := updateURL
	if effective == "" {
		effective = p.updateURL
	}

	if effective == "" {
		p.raiseError("failed to update content blocking profile, update URL is empty", DownloadError)

		return false
	}

	u, err := url.Parse(effective)
	if err != nil || !u.IsAbs() {
		p.raiseError(fmt.Sprintf("failed to update content blocking profile, update URL (%s) is invalid", effective), DownloadError)

		return false
	}

	p.job = newDataFetchJob(p.manager.httpClient, u, p.finishUpdate)
	p.job.start()
	p.modified()

	return true
}

// finishUpdate is the fetch job completion callback.  It runs on the job
// goroutine; a job that has been cancelled by Remove no longer matches p.job
// and is dropped.
func (p *Profile) finishUpdate(job *dataFetchJob, body []byte, jobErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.job != job {
		return
	}

	p.job = nil

	if jobErr != nil {
		p.raiseError(fmt.Sprintf("failed to update content blocking profile: %s", jobErr), DownloadError)

		return
	}

	data, checksum, err := filterlist.NormalizeBody(bytes.NewReader(body))
	if err != nil {
		p.raiseError("failed to update content blocking profile: invalid header", ParseError)

		return
	}

	if checksum != "" && filterlist.Checksum(data) != checksum {
		p.raiseError("failed to update content blocking profile: checksum mismatch", ChecksumError)

		return
	}

	if err = p.commitRules(data); err != nil {
		p.raiseError(fmt.Sprintf("failed to update content blocking profile: %s", err), DownloadError)

		return
	}

	p.lastUpdate = time.Now().UTC()

	wasLoaded := p.wasLoaded
	p.clear()
	p.scanHeader()

	if wasLoaded {
		p.loadRules()
	}

	p.modified()
}

// commitRules writes the canonical subscription data with atomic commit
// semantics: the content goes to a temporary file which is renamed over the
// profile path, so a failed update never clobbers the previous file.
func (p *Profile) commitRules(data []byte) (err error) {
	path := p.Path()

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); cerr != nil && err == nil {
		err = cerr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	return nil
}

// scanHeader reads the header of the cached file into the profile metadata.
// Must be called with the profile lock held.  A missing file is not an
// error: the profile simply stays empty.
func (p *Profile) scanHeader() {
	f, err := os.Open(p.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			p.raiseError(fmt.Sprintf("failed to open content blocking profile file: %s", err), ReadError)
		}

		return
	}
	defer func() { _ = f.Close() }()

	info, err := filterlist.ScanHeader(f)
	if err != nil {
		p.raiseError("failed to load content blocking profile: invalid header", ParseError)

		return
	}

	if p.flags&HasCustomTitleFlag == 0 && info.Title != "" {
		p.title = info.Title
	}

	p.isEmpty = info.IsEmpty
}

// Remove cancels any in-flight update and deletes the cached subscription
// file.  A late fetch completion after Remove is a no-op.
func (p *Profile) Remove() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.job != nil {
		p.job.cancel()
		p.job = nil
	}

	err := os.Remove(p.Path())
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// raiseError records the error on the profile and surfaces it through the
// console sink.  Must be called with the profile lock held.
func (p *Profile) raiseError(message string, profileError ProfileError) {
	p.err = profileError
	p.manager.console.AddMessage(message, OtherMessageCategory, ErrorLevel, p.Path())
	p.modified()
}

// modified emits the modification notification.  Must be called with the
// profile lock held.
func (p *Profile) modified() {
	if p.OnModified != nil {
		p.OnModified()
	}
}
