package router

import (
	"net/http"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/endpoints"
	"botpos-chat-backend/internal/api/middleware"
	flowsvc "botpos-chat-backend/internal/service/flow"
)

func FlowRoutes(prefix string, service *flowsvc.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		e := endpoints.NewFlowEndpoints(service)
		guard := middleware.ValidateAdminJWT

		mux.HandleFunc(prefix+"/flows", s.MakeHTTPHandleFunc(e.Flows, guard))
		mux.HandleFunc(prefix+"/flows/{flowId}", s.MakeHTTPHandleFunc(e.Flow, guard))
		mux.HandleFunc(prefix+"/flows/{flowId}/graph", s.MakeHTTPHandleFunc(e.Graph, guard))
		mux.HandleFunc(prefix+"/flows/{flowId}/nodes", s.MakeHTTPHandleFunc(e.Nodes, guard))
		mux.HandleFunc(prefix+"/flows/{flowId}/nodes/{nodeId}", s.MakeHTTPHandleFunc(e.Node, guard))
		mux.HandleFunc(prefix+"/flows/{flowId}/connections", s.MakeHTTPHandleFunc(e.Connections, guard))
		mux.HandleFunc(prefix+"/flows/{flowId}/connections/{connectionId}", s.MakeHTTPHandleFunc(e.Connection, guard))
	}
}
