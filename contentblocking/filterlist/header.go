// Package filterlist handles the on-disk Adblock Plus subscription format:
// header scanning, line scanning and checksum validation.
package filterlist

import (
	"bufio"
	"io"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrInvalidHeader signals that the first line of a subscription does not
// contain the Adblock marker.
var ErrInvalidHeader errors.Error = "invalid adblock header"

// headerMarker must appear, case-insensitively, in the first line of every
// subscription file.
const headerMarker = "[adblock"

// titlePrefix marks the metadata comment carrying the list title.
const titlePrefix = "! Title: "

// maxHeaderLines bounds how many lines after the first the header scan is
// allowed to examine.
const maxHeaderLines = 50

// HeaderInfo is the result of a header scan.
type HeaderInfo struct {
	// Title is the value of the first "! Title:" metadata comment, if any.
	Title string

	// IsEmpty is false as soon as a non-blank, non-comment line appears.
	IsEmpty bool
}

// IsAdblockHeader reports whether line is a valid subscription header line.
func IsAdblockHeader(line string) bool {
	return strings.Contains(strings.ToLower(line), headerMarker)
}

// ScanHeader validates the subscription header and extracts the title
// without parsing the body.  It reads the first line plus at most
// maxHeaderLines subsequent lines.
func ScanHeader(r io.Reader) (info HeaderInfo, err error) {
	info = HeaderInfo{IsEmpty: true}

	sc := bufio.NewScanner(r)
	if !sc.Scan() || !IsAdblockHeader(sc.Text()) {
		if err = sc.Err(); err != nil {
			return info, err
		}

		return info, ErrInvalidHeader
	}

	for lineNumber := 0; lineNumber < maxHeaderLines && sc.Scan(); lineNumber++ {
		line := strings.TrimSpace(sc.Text())

		if info.IsEmpty && line != "" && !strings.HasPrefix(line, "!") {
			info.IsEmpty = false
		}

		if strings.HasPrefix(line, titlePrefix) && info.Title == "" {
			info.Title = strings.TrimSpace(line[len(titlePrefix):])
		}
	}

	return info, sc.Err()
}
