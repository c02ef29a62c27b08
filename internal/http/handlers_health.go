package http

import "net/http"

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", Message: "Server is healthy"})
}
