package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mpapenbr/laptime-logger/pkg/auth"
	"github.com/mpapenbr/laptime-logger/pkg/model"
)

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.Tracks.Tracks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// getTrack returns the track together with its layouts
func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Tracks.TrackBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	layouts, err := s.svc.Tracks.Layouts(r.Context(), t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*model.Track
		Layouts []*model.TrackLayout `json:"layouts"`
	}{t, layouts})
}

func (s *Server) trackLeaderboard(w http.ResponseWriter, r *http.Request) {
	topN, err := intQuery(r, "top", s.topN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.Leaderboard.TrackBoard(r.Context(), chi.URLParam(r, "slug"), topN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) listLayouts(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.Tracks.AllLayouts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) createTrack(w http.ResponseWriter, r *http.Request) {
	var req model.Track
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.IsActive = true
	ret, err := s.svc.Tracks.CreateTrack(r.Context(), auth.FromContext(r.Context()), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *Server) createLayout(w http.ResponseWriter, r *http.Request) {
	var req model.TrackLayout
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.Tracks.CreateLayout(r.Context(),
		auth.FromContext(r.Context()), chi.URLParam(r, "slug"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *Server) seedLayouts(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.Tracks.SeedMainLayouts(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) listTires(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.Tracks.TireCompounds(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) createTire(w http.ResponseWriter, r *http.Request) {
	var req model.TireCompound
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.Tracks.CreateTireCompound(r.Context(),
		auth.FromContext(r.Context()), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *Server) createCondition(w http.ResponseWriter, r *http.Request) {
	var req model.Condition
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.Tracks.CreateCondition(r.Context(),
		auth.FromContext(r.Context()), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *Server) getCondition(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.Tracks.ConditionByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
