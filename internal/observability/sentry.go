package observability

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports err tagged with the request route. No-op when Sentry is not initialised.
func CaptureError(r *http.Request, err error) {
	if err == nil {
		return
	}

	withRequestScope(r, func(hub *sentry.Hub, _ *sentry.Scope) {
		hub.CaptureException(err)
	})
}

func withRequestScope(r *http.Request, capture func(hub *sentry.Hub, scope *sentry.Scope)) {
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if r != nil {
			scope.SetTag("method", r.Method)
			scope.SetTag("path", r.URL.Path)
			if r.Pattern != "" {
				scope.SetTag("route", r.Pattern)
			}
			if id := RequestIDFromContext(r.Context()); id != "" {
				scope.SetTag("request_id", id)
			}
		}
		capture(hub, scope)
	})
}
