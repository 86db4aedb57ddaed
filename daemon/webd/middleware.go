package webd

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	ghandlers "github.com/gorilla/handlers"
)

// tokenAuthenticationMiddleware checks for a valid token in the
// X-Catfuse-Token header or the api_token query parameter.
// An invalid token gets 403 Forbidden. An empty validToken allows all
// requests.
func tokenAuthenticationMiddleware(validToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validToken == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := r.Header.Get("X-Catfuse-Token")
			if token == "" {
				token = r.URL.Query().Get("api_token")
			}
			if token != validToken {
				slog.Warn("Invalid token",
					"method", r.Method, "url", r.URL.Path,
					"remote", r.RemoteAddr, "user-agent", r.UserAgent())
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func permissiveCorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Add("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, X-Catfuse-Token")
		next.ServeHTTP(w, r)
	})
}

func contentTypeMiddlewareFunc(contentType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			next.ServeHTTP(w, r)
		})
	}
}

// accessLogger writes one structured line per request to w.
func accessLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

var accessLog = accessLogger(os.Stdout)

// writeLog is a gorilla handlers.LogFormatter. The writer it is handed
// is ignored in favor of accessLog.
func writeLog(_ io.Writer, params ghandlers.LogFormatterParams) {
	req := params.Request
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	attrs := []any{
		"remote", host,
		"method", req.Method,
		"uri", params.URL.RequestURI(),
		"status", params.StatusCode,
		"size", params.Size,
		"elapsed", time.Since(params.TimeStamp).Round(time.Microsecond),
	}
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		attrs = append(attrs, "forwarded", fwd)
	}
	accessLog.Info("HTTP", attrs...)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CustomLoggingHandler(io.Discard, next, writeLog)
}
