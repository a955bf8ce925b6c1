package server

import (
	"net/http"

	"github.com/mbarden/leadwire/internals/tools"
)

type toolListResponse struct {
	Tools []tools.Definition `json:"tools"`
}

func (s *Server) HandlerListTools(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, toolListResponse{Tools: s.Base.Agent.ListTools()})
}
