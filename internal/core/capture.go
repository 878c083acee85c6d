package core

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/ParleSec/MirrorBin/internal/lookingglass"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	captureSessionHeader   = "X-Mirror-Session"
	captureSessionQueryKey = "mirror_session"

	// Bodies beyond this are counted but not kept. /bytes and /chars can
	// produce far more than an inspector wants to display.
	captureBodyLimit = 64 * 1024
)

// limitedBuffer keeps the first limit bytes written to it and counts the rest.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
	total int64
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.total += int64(len(p))
	if room := b.limit - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(room, len(p))])
	}
	return len(p), nil
}

// payload encodes the kept bytes, or returns nil when nothing was seen.
func (b *limitedBuffer) payload() *lookingglass.CapturedPayload {
	if b.total == 0 {
		return nil
	}
	data := b.buf.Bytes()
	p := &lookingglass.CapturedPayload{
		Encoding:  "utf-8",
		Data:      string(data),
		Size:      b.total,
		Truncated: b.total > int64(len(data)),
	}
	if !utf8.Valid(data) {
		p.Encoding = "base64"
		p.Data = base64.StdEncoding.EncodeToString(data)
	}
	return p
}

// teeBody copies what the handler reads from the request body.
type teeBody struct {
	io.Reader
	io.Closer
}

// CaptureMiddleware records exchanges for requests naming an inspection
// session, via the X-Mirror-Session header or the mirror_session query
// parameter. Handlers add to the record with lookingglass.Annotate.
func CaptureMiddleware(lg *lookingglass.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := captureSessionID(r)
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := lg.GetSession(sessionID); !ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqBody := &limitedBuffer{limit: captureBodyLimit}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = teeBody{Reader: io.TeeReader(r.Body, reqBody), Closer: r.Body}
			}
			respBody := &limitedBuffer{limit: captureBodyLimit}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(respBody)

			ctx, outcome := lookingglass.WithOutcome(r.Context())
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}

			exchange := lookingglass.CapturedExchange{
				ID:        uuid.NewString(),
				SessionID: sessionID,
				Route:     route,
				Request: lookingglass.CapturedMessage{
					Method:     r.Method,
					URL:        r.URL.RequestURI(),
					RemoteAddr: r.RemoteAddr,
					Headers:    requestHeaders(r),
					Body:       reqBody.payload(),
				},
				Response: lookingglass.CapturedMessage{
					Status:  status,
					Headers: map[string][]string(ww.Header().Clone()),
					Body:    respBody.payload(),
				},
				Duration: time.Since(start),
				Outcome:  outcome(),
			}
			title := r.Method + " " + exchange.Request.URL + " -> " + strconv.Itoa(status)
			lg.NewEventBroadcaster(sessionID).EmitHTTPExchange(title, exchange)
		})
	}
}

func captureSessionID(r *http.Request) string {
	if sessionID := r.Header.Get(captureSessionHeader); sessionID != "" {
		return sessionID
	}
	return r.URL.Query().Get(captureSessionQueryKey)
}

// requestHeaders clones the request headers with Host restored.
func requestHeaders(r *http.Request) map[string][]string {
	headers := r.Header.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	if r.Host != "" && headers.Get("Host") == "" {
		headers.Set("Host", r.Host)
	}
	return map[string][]string(headers)
}
