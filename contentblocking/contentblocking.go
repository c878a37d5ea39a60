// Package contentblocking implements Adblock Plus content blocking profiles:
// named, versioned filter lists fetched from a URL and cached locally, with a
// per-request matcher over a character-indexed rule tree and cosmetic
// (CSS-selector) filter retrieval.
//
// A Profile is single-threaded from the perspective of its public API;
// completion of an asynchronous update is serialized internally so a host
// does not observe a reload concurrently with a match.
package contentblocking

import (
	"github.com/AdguardTeam/golibs/log"
)

// ProfileError describes the last failure recorded on a profile.  Errors are
// never fatal: they are surfaced through the console sink and leave the
// profile in its previous state.
type ProfileError int

// ProfileError enumeration
const (
	// NoError means the last operation succeeded.
	NoError ProfileError = iota
	// ReadError is an I/O failure opening the profile file.
	ReadError
	// ParseError is a missing or invalid header, during scan or update.
	ParseError
	// DownloadError is a fetch failure or an invalid or empty update URL.
	DownloadError
	// ChecksumError means the declared checksum does not match the computed
	// one.
	ChecksumError
)

// ProfileCategory groups profiles in the host UI.
type ProfileCategory int

// ProfileCategory enumeration
const (
	OtherCategory ProfileCategory = iota
	AdvertisementsCategory
	AnnoyanceCategory
	PrivacyCategory
	RegionalCategory
)

// ProfileFlags carries per-profile toggles persisted by the host.
type ProfileFlags int

// ProfileFlags enumeration
const (
	NoFlags ProfileFlags = 0

	// HasCustomTitleFlag means the user renamed the profile; a title found
	// during the header scan must not override it.
	HasCustomTitleFlag ProfileFlags = 1 << iota
	// HasCustomUpdateURLFlag means the user replaced the update URL.
	HasCustomUpdateURLFlag
)

// MessageCategory classifies console messages.
type MessageCategory int

// MessageCategory enumeration
const (
	OtherMessageCategory MessageCategory = iota
	NetworkMessageCategory
)

// MessageLevel is the severity of a console message.
type MessageLevel int

// MessageLevel enumeration
const (
	LogLevel MessageLevel = iota
	WarningLevel
	ErrorLevel
)

// Console is the host sink for error and diagnostic messages.  The source
// argument is the path of the file the message relates to.
type Console interface {
	AddMessage(message string, category MessageCategory, level MessageLevel, source string)
}

// logConsole is the default Console that writes to the process log.
type logConsole struct{}

// AddMessage implements the Console interface for *logConsole.
func (logConsole) AddMessage(message string, _ MessageCategory, level MessageLevel, source string) {
	switch level {
	case ErrorLevel:
		log.Error("contentblocking: %s: %s", source, message)
	case WarningLevel:
		log.Info("contentblocking: warning: %s: %s", source, message)
	default:
		log.Debug("contentblocking: %s: %s", source, message)
	}
}

// CosmeticFiltersResult carries the CSS selectors applicable to a page.
type CosmeticFiltersResult struct {
	// Rules is the list of selectors to hide.
	Rules []string

	// Exceptions is the list of selectors excluded by #@# rules.
	Exceptions []string
}
