package app

import (
	"context"
	"net/http"
	"sort"
	"time"

	"portfolio-api/internal/auth"
	"portfolio-api/internal/contact"
	"portfolio-api/internal/maintenance"
	"portfolio-api/internal/media"
	"portfolio-api/internal/profile"
	"portfolio-api/internal/project"
	"portfolio-api/internal/skill"
	"portfolio-api/internal/web"
)

type routes struct {
	auth   *auth.Handler
	guard  *auth.Guard
	// bearer guards elevated routes; elevated tokens never travel in the session cookie.
	bearer *auth.Guard

	projects *project.Handler
	skills   *skill.Handler
	contact  *contact.Handler
	profile  *profile.Handler
	media    *media.UploadHandler
	cleanup  *maintenance.CleanupHandler
	health   http.HandlerFunc

	loginLimiter   *auth.RateLimiter
	signupLimiter  *auth.RateLimiter
	contactLimiter *auth.RateLimiter
}

func (rt routes) mux() *http.ServeMux {
	admin := func(next http.HandlerFunc) http.Handler {
		return rt.guard.ProtectFunc(auth.CapabilityManageContent, next)
	}
	elevated := func(next http.HandlerFunc) http.Handler {
		return rt.bearer.ProtectFunc(auth.CapabilityElevated, next)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /auth/signup", rt.signupLimiter.Middleware(http.HandlerFunc(rt.auth.Signup)))
	mux.Handle("POST /auth/login", rt.loginLimiter.Middleware(http.HandlerFunc(rt.auth.Login)))
	mux.HandleFunc("POST /auth/logout", rt.auth.Logout)
	mux.Handle("GET /auth/me", rt.guard.ProtectFunc(auth.CapabilityAuthenticated, rt.auth.Me))
	mux.Handle("POST /auth/admin/otp", admin(rt.auth.RequestElevation))
	mux.Handle("POST /auth/admin/verify", admin(rt.auth.VerifyElevation))

	mux.Handle("GET /admin/accounts", elevated(rt.auth.ListAccounts))
	mux.Handle("PATCH /admin/accounts/{id}/role", elevated(rt.auth.ChangeRole))

	mux.HandleFunc("GET /projects", rt.projects.ListProjects)
	mux.HandleFunc("GET /projects/{id}", rt.projects.GetProject)
	mux.Handle("POST /projects", admin(rt.projects.CreateProject))
	mux.Handle("PUT /projects/{id}", admin(rt.projects.UpdateProject))
	mux.Handle("DELETE /projects/{id}", admin(rt.projects.DeleteProject))

	mux.HandleFunc("GET /skills", rt.skills.ListSkills)
	mux.Handle("POST /skills", admin(rt.skills.CreateSkill))
	mux.Handle("PUT /skills/{id}", admin(rt.skills.UpdateSkill))
	mux.Handle("DELETE /skills/{id}", admin(rt.skills.DeleteSkill))
	mux.Handle("POST /categories", admin(rt.skills.CreateCategory))
	mux.Handle("PUT /categories/{id}", admin(rt.skills.UpdateCategory))
	mux.Handle("DELETE /categories/{id}", admin(rt.skills.DeleteCategory))

	mux.Handle("POST /messages", rt.contactLimiter.Middleware(http.HandlerFunc(rt.contact.Submit)))
	mux.Handle("GET /messages", admin(rt.contact.ListMessages))
	mux.Handle("PATCH /messages/{id}/read", admin(rt.contact.MarkRead))
	mux.Handle("DELETE /messages/{id}", admin(rt.contact.DeleteMessage))

	mux.HandleFunc("GET /profile", rt.profile.GetProfile)
	mux.Handle("PUT /profile", admin(rt.profile.UpdateProfile))

	mux.Handle("POST /media/upload", admin(rt.media.Upload))

	mux.HandleFunc("GET /internal/maintenance/cleanup", rt.cleanup.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", rt.cleanup.Handle)
	mux.HandleFunc("GET /health", rt.health)

	return mux
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		failed := make([]string, 0)
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["failed"] = failed
		}

		web.WriteJSON(w, status, body)
	}
}
