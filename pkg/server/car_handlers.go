package server

import (
	"net/http"

	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/service/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

type resolveResponse struct {
	CarModel *model.CarModel `json:"carModel"`
	Existed  bool            `json:"existed"`
}

func (s *Server) listCars(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.CarModels.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) searchCars(w http.ResponseWriter, r *http.Request) {
	ret, err := s.svc.CarModels.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// resolveCar answers 201 if the car model was created and 200 if it existed
func (s *Server) resolveCar(w http.ResponseWriter, r *http.Request) {
	var req carmodel.ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	car, existed, err := s.svc.CarModels.Resolve(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, resolveResponse{CarModel: car, Existed: existed})
}

func (s *Server) catalogMakes(w http.ResponseWriter, r *http.Request) {
	if s.svc.Catalog == nil {
		writeError(w, r, svcerr.ErrUpstream)
		return
	}
	ret, err := s.svc.Catalog.Makes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) catalogModels(w http.ResponseWriter, r *http.Request) {
	if s.svc.Catalog == nil {
		writeError(w, r, svcerr.ErrUpstream)
		return
	}
	year, err := intQuery(r, "year", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := s.svc.Catalog.Models(r.Context(), r.URL.Query().Get("make"), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
