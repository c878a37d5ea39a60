// Package filterutil contains utilities for hostname handling used by the
// content blocking engine.
package filterutil

import "strings"

// ExtractHostname quickly retrieves the hostname from a URL-like string.  It
// is a best-effort function: the result is not guaranteed to be correct for
// non-hierarchical URLs or IPv6 hosts, which never reach the matcher anyway.
func ExtractHostname(url string) string {
	start := strings.Index(url, "//")
	if start == -1 {
		// A non hierarchical structured URL (e.g. stun: or turn:)
		// https://tools.ietf.org/html/rfc4395#section-2.2
		start = strings.Index(url, ":")
		if start == -1 {
			return ""
		}

		start--
	} else {
		start += 2
	}

	if start < 0 {
		return ""
	}

	end := strings.IndexAny(url[start:], "/:?")
	if end == -1 {
		end = len(url)
	} else {
		end += start
	}

	if end <= start {
		return ""
	}

	return url[start:end]
}

// SubdomainList returns every suffix of the host obtained by stripping
// leading labels, longest first: for "a.b.c" it returns "a.b.c", "b.c", "c".
func SubdomainList(host string) []string {
	if host == "" {
		return nil
	}

	list := make([]string, 0, strings.Count(host, ".")+1)

	for {
		list = append(list, host)

		i := strings.IndexByte(host, '.')
		if i < 0 {
			return list
		}

		host = host[i+1:]
	}
}
