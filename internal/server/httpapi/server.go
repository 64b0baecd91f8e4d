// Package httpapi exposes the browser-facing JSON API: session login,
// self-service account pages, user administration and detection.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/server/inference"
	"github.com/dmitrijs2005/netguard/internal/server/metrics"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const shutdownTimeout = 10 * time.Second

// Accounts is the part of services.AccountService the API uses.
type Accounts interface {
	Register(ctx context.Context, userName, email, password string, role models.Role) (*models.Account, error)
	CreateAccountAsAdmin(ctx context.Context, actor *models.Account, in services.NewAccount) (*models.Account, error)
	EditAccount(ctx context.Context, actor *models.Account, targetID string, ch services.AccountChanges) (*models.Account, error)
	DeleteAccount(ctx context.Context, actor *models.Account, targetID string) error
	ChangeOwnPassword(ctx context.Context, actor *models.Account, oldPassword, newPassword, confirm string) error
	EditOwnProfile(ctx context.Context, actor *models.Account, userName, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, actor *models.Account) ([]*models.Account, error)
	GetAccount(ctx context.Context, actor *models.Account, id string) (*models.Account, error)
}

type Sessions interface {
	Login(ctx context.Context, userName, password, next string) (*services.LoginResult, error)
	Resolve(ctx context.Context, token string) (*models.Account, error)
	Logout(ctx context.Context, token string) error
}

type Detections interface {
	Predict(ctx context.Context, actor *models.Account, features map[string]any) (*services.PredictionResult, error)
	ListForAccount(ctx context.Context, actor *models.Account) ([]*models.Detection, error)
	UserDashboard(ctx context.Context, actor *models.Account) (*services.UserDashboard, error)
	AdminDashboard(ctx context.Context, actor *models.Account) (*services.AdminDashboard, error)
	Simulate(n int) []map[string]any
	ModelInfo(ctx context.Context) (*inference.Info, error)
}

type HTTPServer struct {
	address     string
	accounts    Accounts
	sessions    Sessions
	detections  Detections
	metrics     *metrics.Metrics
	corsOrigins []string
	logger      logging.Logger
}

func NewHTTPServer(a string, l logging.Logger, as Accounts, ss Sessions, ds Detections, mt *metrics.Metrics, corsOrigins []string) *HTTPServer {
	return &HTTPServer{
		address:     a,
		accounts:    as,
		sessions:    ss,
		detections:  ds,
		metrics:     mt,
		corsOrigins: corsOrigins,
		logger:      l.With("module", "http_server"),
	}
}

// Handler builds the full handler chain: CORS, then the router with its
// request id, recovery and instrumentation middleware.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.recoverer, s.instrument)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/register", s.register).Methods(http.MethodPost)
	r.Handle("/logout", s.authed(s.logout)).Methods(http.MethodPost)

	r.Handle("/profile", s.authed(s.profile)).Methods(http.MethodGet)
	r.Handle("/profile", s.authed(s.editProfile)).Methods(http.MethodPost)
	r.Handle("/change_password", s.authed(s.changePassword)).Methods(http.MethodPost)
	r.Handle("/dashboard", s.authed(s.dashboard)).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Handle("/dashboard", s.admin(s.adminDashboard)).Methods(http.MethodGet)
	admin.Handle("/users", s.admin(s.listUsers)).Methods(http.MethodGet)
	admin.Handle("/users", s.admin(s.createUser)).Methods(http.MethodPost)
	admin.Handle("/users/{id}", s.admin(s.getUser)).Methods(http.MethodGet)
	admin.Handle("/users/{id}", s.admin(s.editUser)).Methods(http.MethodPost)
	admin.Handle("/users/{id}", s.admin(s.deleteUser)).Methods(http.MethodDelete)

	detection := r.PathPrefix("/detection").Subrouter()
	detection.Handle("/results", s.authed(s.results)).Methods(http.MethodGet)
	detection.Handle("/model", s.authed(s.modelInfo)).Methods(http.MethodGet)
	detection.Handle("/api/predict", s.authed(s.predict)).Methods(http.MethodPost)
	detection.Handle("/api/simulate", s.authed(s.simulate)).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", requestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
