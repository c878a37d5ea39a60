package proxy

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
	"github.com/Emdek/otter-browser/contentblocking/filterutil"
)

var blockedPageTmpl = template.Must(template.New("blockedPage").Parse(`<!DOCTYPE html>
<html>
<head><title>Request blocked</title></head>
<body>
<h1>Request blocked</h1>
<p>The request to <b>{{.Hostname}}</b> was blocked by the content blocking rule:</p>
<pre>{{.RuleText}}</pre>
</body>
</html>`))

type blockedPageParameters struct {
	Hostname string
	RuleText string
}

// buildBlockedPage builds blocked page content
func buildBlockedPage(session *Session, ruleText string) string {
	params := blockedPageParameters{
		Hostname: filterutil.ExtractHostname(session.RequestURL),
		RuleText: ruleText,
	}

	var data bytes.Buffer
	if err := blockedPageTmpl.Execute(&data, params); err != nil {
		log.Error("error building blocking page code: %v", err)
		return ""
	}

	return data.String()
}

// newBlockedResponse creates an HTTP response for blocked request
func newBlockedResponse(session *Session, ruleText string) *http.Response {
	html := buildBlockedPage(session, ruleText)
	body := strings.NewReader(html)
	res := proxyutil.NewResponse(http.StatusInternalServerError, body, session.HTTPRequest)
	res.Close = true
	res.Header.Set("Content-Type", "text/html; charset=utf-8")
	return res
}
