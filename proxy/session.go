package proxy

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Emdek/otter-browser/contentblocking/rules"
)

// Session accumulates what is known about one HTTP request as it travels
// through the proxy.  The resource type is assumed from the request headers
// first and re-calculated from the Content-Type header once the response
// arrives.
type Session struct {
	ID string // Session identifier

	ResourceType rules.ResourceType // Assumed resource type

	BaseURL    string // URL of the page that issued the request, if known
	RequestURL string // Full request URL

	HTTPRequest  *http.Request  // HTTP request data
	HTTPResponse *http.Response // HTTP response data
}

// NewSession creates a new instance of the Session struct and initializes it.
// id -- unique session identifier
// req -- HTTP request data
func NewSession(id string, req *http.Request) *Session {
	return &Session{
		ID:           id,
		ResourceType: assumeResourceType(req, nil),
		BaseURL:      req.Referer(),
		RequestURL:   req.URL.String(),
		HTTPRequest:  req,
	}
}

// SetResponse sets the response of this session.  This can also change the
// assumed resource type.
func (s *Session) SetResponse(res *http.Response) {
	s.HTTPResponse = res
	s.ResourceType = assumeResourceType(s.HTTPRequest, res)
}

// IsHTMLDocument reports whether the response carries an HTML document the
// cosmetic filters can be injected into.
func (s *Session) IsHTMLDocument() bool {
	if s.HTTPResponse == nil {
		return false
	}

	mediaType, _, _ := mime.ParseMediaType(s.HTTPResponse.Header.Get("Content-Type"))

	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// assumeResourceType assumes the resource type from what we know at this
// point.
// req -- HTTP request
// res -- HTTP response or nil if we don't know it at the moment
func assumeResourceType(req *http.Request, res *http.Response) rules.ResourceType {
	if res != nil {
		mediaType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))

		return assumeResourceTypeFromMediaType(mediaType)
	}

	if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
		return rules.WebSocketType
	}

	if req.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return rules.XMLHttpRequestType
	}

	resourceType := assumeResourceTypeFromMediaType(req.Header.Get("Accept"))
	if resourceType == rules.OtherType {
		// Try to get it from the URL
		resourceType = assumeResourceTypeFromURL(req.URL)
	}

	return resourceType
}

// assumeResourceTypeFromMediaType tries to detect the resource type from the
// specified media type or Accept header.
func assumeResourceTypeFromMediaType(mediaType string) rules.ResourceType {
	switch {
	case strings.HasPrefix(mediaType, "text/html"),
		strings.HasPrefix(mediaType, "application/xhtml"):
		return rules.MainFrameType
	case strings.HasPrefix(mediaType, "text/css"):
		return rules.StyleSheetType
	case strings.HasPrefix(mediaType, "application/javascript"),
		strings.HasPrefix(mediaType, "application/x-javascript"),
		strings.HasPrefix(mediaType, "text/javascript"):
		return rules.ScriptType
	case strings.HasPrefix(mediaType, "image/"):
		return rules.ImageType
	case strings.HasPrefix(mediaType, "application/x-shockwave-flash"):
		return rules.ObjectType
	case strings.HasPrefix(mediaType, "application/json"):
		return rules.XMLHttpRequestType
	}

	return rules.OtherType
}

var fileExtensions = map[string]rules.ResourceType{
	// $script
	".js":  rules.ScriptType,
	".mjs": rules.ScriptType,
	".vbs": rules.ScriptType,
	// $image
	".jpg":  rules.ImageType,
	".jpeg": rules.ImageType,
	".gif":  rules.ImageType,
	".png":  rules.ImageType,
	".webp": rules.ImageType,
	".svg":  rules.ImageType,
	".ico":  rules.ImageType,
	// $stylesheet
	".css": rules.StyleSheetType,
	// $object
	".jar": rules.ObjectType,
	".swf": rules.ObjectType,
	// $xmlhttprequest
	".json": rules.XMLHttpRequestType,
}

// assumeResourceTypeFromURL assumes the resource type from the file extension.
func assumeResourceTypeFromURL(u *url.URL) rules.ResourceType {
	resourceType, ok := fileExtensions[path.Ext(u.Path)]
	if !ok {
		return rules.OtherType
	}

	return resourceType
}
