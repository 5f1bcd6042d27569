package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	"github.com/ovaphlow/trident/service-board-go/internal/issue"
	"github.com/ovaphlow/trident/service-board-go/internal/organization"
	"github.com/ovaphlow/trident/service-board-go/internal/project"
	projectrepo "github.com/ovaphlow/trident/service-board-go/internal/project/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/sprint"
	sprintrepo "github.com/ovaphlow/trident/service-board-go/internal/sprint/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/user"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", w.Header().Get("X-Request-Id"),
			)
		})
	}
}

// RequestIDMiddleware tags every request with a generated id, echoed on the
// response for correlation.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. Intentionally
// simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware resolves the bearer session token into a Principal on the
// request context. Requests without a valid token pass through with a zero
// Principal; the services decide whether that is acceptable, so the
// unauthenticated failure always comes from the core, never the transport.
func AuthMiddleware(parser *identity.TokenParser, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if strings.HasPrefix(raw, "Bearer ") {
				p, err := parser.Parse(strings.TrimPrefix(raw, "Bearer "))
				if err != nil {
					logger.Debugw("session token rejected", "err", err)
				} else {
					r = r.WithContext(identity.WithPrincipal(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes wires repositories, services and handlers onto the standard
// library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, provider identity.Provider, parser *identity.TokenParser, projCfg project.Config) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /trident-api-board/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	userSvc := user.NewService(db, nil)
	orgSvc := organization.NewService(userSvc, provider, logger)
	sprintRepo := sprintrepo.NewSprintRepo(db)
	projectSvc := project.NewService(db, nil, sprintRepo, userSvc, orgSvc, projCfg, logger)
	sprintSvc := sprint.NewService(db, sprintRepo, projectrepo.NewProjectRepo(db), logger)
	issueSvc := issue.NewService(db, nil, userSvc, logger)

	projectHandler := project.NewHandler(projectSvc, logger)
	mux.HandleFunc("POST /trident-api-board/projects", projectHandler.Create)
	mux.HandleFunc("GET /trident-api-board/projects", projectHandler.List)
	mux.HandleFunc("GET /trident-api-board/projects/{id}", projectHandler.Get)
	mux.HandleFunc("DELETE /trident-api-board/projects/{id}", projectHandler.Delete)

	sprintHandler := sprint.NewHandler(sprintSvc, logger)
	mux.HandleFunc("POST /trident-api-board/projects/{projectId}/sprints", sprintHandler.Create)
	mux.HandleFunc("PATCH /trident-api-board/sprints/{id}/status", sprintHandler.UpdateStatus)

	issueHandler := issue.NewHandler(issueSvc, logger)
	mux.HandleFunc("POST /trident-api-board/projects/{projectId}/issues", issueHandler.Create)
	mux.HandleFunc("GET /trident-api-board/sprints/{sprintId}/issues", issueHandler.BySprint)
	mux.HandleFunc("PATCH /trident-api-board/issues/{id}", issueHandler.Update)
	mux.HandleFunc("DELETE /trident-api-board/issues/{id}", issueHandler.Delete)
	mux.HandleFunc("PUT /trident-api-board/issues/order", issueHandler.UpdateOrder)
	mux.HandleFunc("GET /trident-api-board/users/{userId}/issues", issueHandler.ForUser)

	orgHandler := organization.NewHandler(orgSvc, logger)
	mux.HandleFunc("GET /trident-api-board/organizations/{slug}", orgHandler.Get)
	mux.HandleFunc("GET /trident-api-board/organization-users", orgHandler.Users)

	// middleware chain: request id first, then auth, security headers, logging
	handler := AuthMiddleware(parser, logger)(SecurityHeadersMiddleware()(mux))
	handler = RequestIDMiddleware()(handler)
	handler = LoggingMiddleware(logger)(handler)
	return handler
}
