package server

import (
	"net/http"
	"strings"

	"github.com/aarondl/opt/omit"
	"github.com/go-chi/chi/v5"

	"github.com/mpapenbr/laptime-logger/pkg/auth"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

// historyFilter reads the filter of the history request.
// Unset parameters don't restrict the result.
func historyFilter(r *http.Request) (model.HistoryFilter, error) {
	var ret model.HistoryFilter
	trackID, err := uuidQuery(r, "track")
	if err != nil {
		return ret, err
	}
	ret.TrackID = omit.FromPtr(trackID)
	carID, err := uuidQuery(r, "car")
	if err != nil {
		return ret, err
	}
	ret.CarModelID = omit.FromPtr(carID)
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			return ret, svcerr.Validation("status", "%s", err.Error())
		}
		ret.Status = omit.From(st)
	}
	if ret.SortBy, err = model.ParseSortBy(r.URL.Query().Get("sort")); err != nil {
		return ret, svcerr.Validation("sort", "%s", err.Error())
	}
	return ret, nil
}

func (s *Server) myHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.History.History(r.Context(),
		auth.FromContext(r.Context()).UserID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) myCars(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.History.UserCarModels(r.Context(), auth.FromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) myTracks(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.History.UserTracks(r.Context(), auth.FromContext(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// updateBio creates the user entry on first use
func (s *Server) updateBio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bio string `json:"bio"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := auth.FromContext(r.Context())
	if _, err := s.svc.Profiles.EnsureUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.Profiles.UpdateBio(r.Context(), id, req.Bio)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.Stats.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
