package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/netguard/internal/server/traffic"
)

func (s *HTTPServer) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.detections.UserDashboard(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":  newStatsView(d.Stats),
		"recent": newDetectionViews(d.Recent),
	})
}

func (s *HTTPServer) adminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.detections.AdminDashboard(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":  d.Users,
		"stats":  newStatsView(d.Stats),
		"recent": newDetectionViews(d.Recent),
	})
}

func (s *HTTPServer) results(w http.ResponseWriter, r *http.Request) {
	list, err := s.detections.ListForAccount(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newDetectionViews(list))
}

func (s *HTTPServer) modelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.detections.ModelInfo(r.Context())
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *HTTPServer) predict(w http.ResponseWriter, r *http.Request) {
	var features map[string]any
	if err := decode(w, r, &features); err != nil {
		s.writeError(w, r, err, "")
		return
	}

	res, err := s.detections.Predict(r.Context(), principalFrom(r.Context()), features)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) simulate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"samples": s.detections.Simulate(traffic.DefaultSamples),
	})
}
