package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/Emdek/otter-browser/contentblocking/filterutil"
	"github.com/Emdek/otter-browser/contentblocking/rules"
)

// onRequest handles the outgoing HTTP requests
func (s *Server) onRequest(sess *gomitmproxy.Session) (*http.Request, *http.Response) {
	r := sess.Request()
	session := NewSession(sess.ID(), r)

	log.Debug("proxy: id=%s: saving session", session.ID)
	sess.SetProp(sessionPropKey, session)

	if r.Method == http.MethodConnect {
		// Do nothing for CONNECT requests
		return nil, nil
	}

	result := s.Manager.CheckURL(session.BaseURL, session.RequestURL, session.ResourceType)
	if result.IsBlocked {
		log.Debug("proxy: id=%s: blocked by %s: %s", session.ID, result.Rule, session.RequestURL)

		// Mark this request as blocked so that we don't touch it in the
		// onResponse handler
		sess.SetProp(requestBlockedKey, true)

		return nil, newBlockedResponse(session, result.Rule)
	}

	if s.InjectCosmeticFilters && session.ResourceType == rules.MainFrameType {
		// An identity response body is needed for the cosmetic rewrite.
		r.Header.Del("Accept-Encoding")
	}

	return r, nil
}

// onResponse handles all the responses
func (s *Server) onResponse(sess *gomitmproxy.Session) *http.Response {
	if _, ok := sess.GetProp(requestBlockedKey); ok {
		// request was already blocked
		return nil
	}

	v, ok := sess.GetProp(sessionPropKey)
	if !ok {
		log.Error("proxy: id=%s: session not found", sess.ID())

		return nil
	}

	session, ok := v.(*Session)
	if !ok {
		log.Error("proxy: id=%s: session not found (wrong type)", sess.ID())

		return nil
	}

	// Update the session -- this re-calculates the resource type
	session.SetResponse(sess.Response())

	result := s.Manager.CheckURL(session.BaseURL, session.RequestURL, session.ResourceType)
	if result.IsBlocked {
		log.Debug("proxy: id=%s: blocked by %s: %s", session.ID, result.Rule, session.RequestURL)

		return newBlockedResponse(session, result.Rule)
	}

	if s.InjectCosmeticFilters && session.IsHTMLDocument() {
		return s.injectCosmeticFilters(session, result.CosmeticFiltersMode)
	}

	return nil
}

// injectCosmeticFilters rewrites an HTML response, appending a style element
// that hides the selectors applicable to the page's domain.
func (s *Server) injectCosmeticFilters(session *Session, mode rules.CosmeticFiltersMode) *http.Response {
	if mode == rules.NoFilters {
		return nil
	}

	host := filterutil.ExtractHostname(session.RequestURL)
	filters := s.Manager.CosmeticFilters(filterutil.SubdomainList(host), mode == rules.DomainOnlyFilters)

	selectors := excludeSelectors(filters.Rules, filters.Exceptions)
	if len(selectors) == 0 {
		return nil
	}

	res := session.HTTPResponse

	body, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	if err != nil {
		log.Error("proxy: id=%s: reading response body: %s", session.ID, err)

		return nil
	}

	var buf bytes.Buffer
	buf.Write(body)
	buf.WriteString("<style>")
	buf.WriteString(strings.Join(selectors, ",\n"))
	buf.WriteString(" { display: none!important; }</style>")

	res.Body = io.NopCloser(&buf)
	res.ContentLength = int64(buf.Len())
	res.Header.Del("Content-Length")

	return res
}

// excludeSelectors drops every selector present in the exception list.
func excludeSelectors(selectors, exceptions []string) []string {
	if len(exceptions) == 0 {
		return selectors
	}

	excluded := make(map[string]struct{}, len(exceptions))
	for _, e := range exceptions {
		excluded[e] = struct{}{}
	}

	kept := selectors[:0]
	for _, sel := range selectors {
		if _, ok := excluded[sel]; !ok {
			kept = append(kept, sel)
		}
	}

	return kept
}
