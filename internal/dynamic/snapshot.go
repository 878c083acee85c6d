package dynamic

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/ParleSec/MirrorBin/pkg/models"
)

// BuildSnapshot captures the query arguments, headers, origin and URL of an
// inbound request. The snapshot is built fresh for every call.
func BuildSnapshot(r *http.Request) models.RequestSnapshot {
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		slog.DebugContext(r.Context(), "query string partially parsed",
			"raw_query", r.URL.RawQuery,
			"error", err,
		)
	}
	return models.RequestSnapshot{
		Args:    foldArgs(values),
		Headers: foldHeaders(r),
		Origin:  originOf(r),
		URL:     requestURL(r),
	}
}

// foldArgs collapses single-occurrence parameters to scalars and keeps
// repeated parameters as sequences in transport order. Pairs that
// url.ParseQuery rejects (bad escapes, ';' separators) are absent from args
// while the url field still carries the raw query verbatim.
func foldArgs(values url.Values) map[string]models.ArgValue {
	args := make(map[string]models.ArgValue, len(values))
	for name, vs := range values {
		if len(vs) == 1 {
			args[name] = models.Scalar(vs[0])
			continue
		}
		args[name] = models.Sequence(vs...)
	}
	return args
}

// foldHeaders keeps the first value of each header, keyed by canonical name.
// net/http moves Host out of the header map, so it is added back from r.Host.
func foldHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+1)
	for name, vs := range r.Header {
		if len(vs) == 0 {
			continue
		}
		headers[http.CanonicalHeaderKey(name)] = vs[0]
	}
	if r.Host != "" {
		if _, ok := headers["Host"]; !ok {
			headers["Host"] = r.Host
		}
	}
	return headers
}

// originOf returns the address of the immediate peer, not a forwarded-for
// value.
func originOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestURL rebuilds the absolute URL of the request. The raw query is
// appended verbatim, and only when it is non-empty.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(r.Host)
	b.WriteString(r.URL.EscapedPath())
	if r.URL.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(r.URL.RawQuery)
	}
	return b.String()
}
