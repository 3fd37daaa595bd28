package middleware

import (
	"net/http"
	"time"

	hr "github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

type Middleware func(hr.Handle) hr.Handle

// Chain composites given handler and middlewares. The last middleware is the outermost one.
func Chain(h hr.Handle, ms ...Middleware) hr.Handle {
	for _, m := range ms {
		h = m(h)
	}
	return h
}

// PanicRecoverer recovers from panic of underlying handlers
func PanicRecoverer() Middleware {
	return func(h hr.Handle) hr.Handle {
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(log.Fields{
						"panicReason": rec,
						"path":        r.URL.Path,
					}).Error("got panic from underlying handler")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			h(w, r, p)
		}
	}
}

// RequestLogger logs method, path, status and latency of every request
func RequestLogger() Middleware {
	return func(h hr.Handle) hr.Handle {
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			h(sw, r, p)
			log.WithFields(log.Fields{
				"httpMethod": r.Method,
				"path":       r.URL.Path,
				"status":     sw.status,
				"latencyMs":  time.Since(start).Milliseconds(),
			}).Info("request served")
		}
	}
}

// HSTSer enforces clients to use HTTPS for interaction with service
func HSTSer(enabled bool) Middleware {
	return func(h hr.Handle) hr.Handle {
		if !enabled {
			return h
		}
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h(w, r, p)
		}
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
