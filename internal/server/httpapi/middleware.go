package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/policy"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

type ctxKey string

const (
	requestIDKey ctxKey = "requestID"
	principalKey ctxKey = "principal"
)

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// principalFrom returns the account attached by the session middleware.
func principalFrom(ctx context.Context) *models.Account {
	acc, _ := ctx.Value(principalKey).(*models.Account)
	return acc
}

// requestID keeps a well-formed incoming X-Request-ID and mints one otherwise.
func (s *HTTPServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error(r.Context(), "panic in handler", "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "panic", rec)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: common.ErrorInternal.Error()})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and counts it by route template, so
// /admin/users/{id} is one series no matter how many ids are requested.
func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		s.metrics.HTTPRequest(r.Method, route, rec.status)
		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

// authed resolves the session cookie and attaches the account to the
// request context. Anonymous callers get 401 with a login redirect that
// brings them back afterwards.
func (s *HTTPServer) authed(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(common.SessionCookieName); err == nil {
			token = c.Value
		}

		acc, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err, "/login?next="+url.QueryEscape(r.URL.RequestURI()))
			return
		}

		h(w, r.WithContext(context.WithValue(r.Context(), principalKey, acc)))
	})
}

// requireCapability rejects principals whose role fails allowed.
func (s *HTTPServer) requireCapability(allowed func(models.Role) bool, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc := principalFrom(r.Context())
		if acc == nil || !allowed(acc.Role) {
			s.writeError(w, r, common.ErrForbidden, "")
			return
		}
		h(w, r)
	}
}

func (s *HTTPServer) admin(h http.HandlerFunc) http.Handler {
	return s.authed(s.requireCapability(policy.CanManageUsers, h))
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
