package rules

import (
	"strings"

	"github.com/Emdek/otter-browser/contentblocking/filterutil"
	"golang.org/x/net/publicsuffix"
)

// maxURLLength limits the URL length by 4 KiB. It appears that there
// can be URLs longer than a megabyte, and it makes no sense to go
// through the whole URL.
const maxURLLength = 4 * 1024

// ResourceType is the classification the host network stack assigns to an
// outbound request.
type ResourceType int

// ResourceType enumeration
const (
	// MainFrameType is a top-level document navigation.
	MainFrameType ResourceType = iota
	// SubFrameType is a document loaded into an iframe ($subdocument).
	SubFrameType
	// StyleSheetType is a CSS resource ($stylesheet).
	StyleSheetType
	// ScriptType is a script resource ($script).
	ScriptType
	// ImageType is any image ($image).
	ImageType
	// ObjectType is a plugin resource ($object).
	ObjectType
	// ObjectSubrequestType is a request issued by a plugin ($object-subrequest).
	ObjectSubrequestType
	// XMLHttpRequestType is an ajax/fetch request ($xmlhttprequest).
	XMLHttpRequestType
	// WebSocketType is a websocket connection ($websocket).
	WebSocketType
	// PopupType is a popup window navigation ($popup).
	PopupType
	// OtherType is any other request type; it matches no type-specific
	// option.
	OtherType
)

// resourceTypeOption is one entry of the resource type to rule option
// mapping.
type resourceTypeOption struct {
	resourceType ResourceType
	option       RuleOption
}

// resourceTypeOptions maps resource types to the option flags that restrict
// rules to them.  MainFrameType and OtherType are deliberately absent: they
// match no type-specific option and are subject only to unrestricted rules.
var resourceTypeOptions = []resourceTypeOption{
	{ImageType, OptionImage},
	{ScriptType, OptionScript},
	{StyleSheetType, OptionStyleSheet},
	{ObjectType, OptionObject},
	{XMLHttpRequestType, OptionXMLHttpRequest},
	{SubFrameType, OptionSubdocument},
	{PopupType, OptionPopup},
	{ObjectSubrequestType, OptionObjectSubrequest},
	{WebSocketType, OptionWebSocket},
}

// Request represents one outbound network request to be checked against the
// loaded rules.
type Request struct {
	// URL is the full request URL.
	URL string

	// Host is the hostname of the request URL.
	Host string

	// BaseHost is the registrable host portion of the page that issued the
	// request.  It is empty for top-level navigations.
	BaseHost string

	// Subdomains is the list of the request host's suffixes, longest first:
	// for "a.b.c" it contains "a.b.c", "b.c" and "c".
	Subdomains []string

	// ResourceType is the type of the requested resource.
	ResourceType ResourceType
}

// NewRequest creates a new instance of Request and precomputes the derived
// fields the matcher needs.
func NewRequest(baseURL, requestURL string, resourceType ResourceType) *Request {
	if len(requestURL) > maxURLLength {
		requestURL = requestURL[:maxURLLength]
	}

	host := filterutil.ExtractHostname(requestURL)

	return &Request{
		URL:          requestURL,
		Host:         host,
		BaseHost:     registrableHost(filterutil.ExtractHostname(baseURL)),
		Subdomains:   filterutil.SubdomainList(host),
		ResourceType: resourceType,
	}
}

// registrableHost returns the effective TLD plus one label for the hostname,
// falling back to the hostname itself when the public suffix list has no
// answer (e.g. for test domains or bare hosts).
func registrableHost(hostname string) string {
	if domain := effectiveTLDPlusOne(hostname); domain != "" {
		return domain
	}

	return hostname
}

// effectiveTLDPlusOne is a faster version of publicsuffix.EffectiveTLDPlusOne
// that avoids using fmt.Errorf when the domain is less or equal the suffix.
func effectiveTLDPlusOne(hostname string) (domain string) {
	hostnameLen := len(hostname)
	if hostnameLen < 1 {
		return ""
	}

	if hostname[0] == '.' || hostname[hostnameLen-1] == '.' {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)

	i := hostnameLen - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return ""
	}

	return hostname[1+strings.LastIndex(hostname[:i], "."):]
}
