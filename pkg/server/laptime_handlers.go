package server

import (
	"net/http"

	"github.com/mpapenbr/laptime-logger/pkg/auth"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/service/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/service/laptime"
)

// recordBody carries either a carModelId or a car description which is
// resolved together with the lap time
type recordBody struct {
	laptime.RecordRequest
	Car *carmodel.ResolveRequest `json:"car"`
}

type recordResponse struct {
	LapTime  *model.LapTime  `json:"lapTime"`
	CarModel *model.CarModel `json:"carModel,omitempty"`
}

func (s *Server) recordLapTime(w http.ResponseWriter, r *http.Request) {
	var req recordBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := auth.FromContext(r.Context())
	var ret recordResponse
	var err error
	if req.Car != nil {
		ret.LapTime, ret.CarModel, err = s.svc.LapTimes.RecordWithCar(r.Context(), id,
			laptime.RecordWithCarRequest{RecordRequest: req.RecordRequest, Car: *req.Car})
	} else {
		ret.LapTime, err = s.svc.LapTimes.Record(r.Context(), id, req.RecordRequest)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *Server) verifyLapTime(w http.ResponseWriter, r *http.Request) {
	lapID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.LapTimes.Verify(r.Context(), auth.FromContext(r.Context()), lapID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) rejectLapTime(w http.ResponseWriter, r *http.Request) {
	lapID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err = decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.LapTimes.Reject(r.Context(),
		auth.FromContext(r.Context()), lapID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
