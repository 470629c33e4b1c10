package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes exposes /healthz. pending may be nil.
func (r *Router) RegisterHealthRoutes(pending func() int) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body := map[string]any{"status": "ok"}
		if pending != nil {
			body["pendingSummaries"] = pending()
		}
		writeJSON(w, http.StatusOK, Ok(body))
	})
}

func (r *Router) RegisterPatientRoutes(p *PatientsHandler) {
	r.HandleHandler("/api/v1/patients", p)
	r.HandleHandler("/api/v1/patients/", p)
}

// RegisterTeamRoutes also routes /api/v1/teams/{teamId}/patients/... to p.
func (r *Router) RegisterTeamRoutes(t *TeamsHandler, p *PatientsHandler) {
	r.HandleHandler("/api/v1/teams", t)
	r.Handle("/api/v1/teams/", func(w http.ResponseWriter, req *http.Request) {
		if isTeamPatientsPath(req.URL.Path) {
			p.ServeTeamPatients(w, req)
			return
		}
		t.ServeHTTP(w, req)
	})
}

func (r *Router) RegisterInvitationRoutes(i *InvitationsHandler) {
	r.HandleHandler("/api/v1/invitations", i)
	r.HandleHandler("/api/v1/invitations/", i)
}

func (r *Router) RegisterCaregiverRoutes(c *CaregiversHandler) {
	r.HandleHandler("/api/v1/caregivers", c)
	r.HandleHandler("/api/v1/caregivers/", c)
}
