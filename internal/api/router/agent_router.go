package router

import (
	"net/http"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/endpoints"
	"support-hub-backend/internal/api/middleware"
	agentservice "support-hub-backend/internal/service/agent"
	"support-hub-backend/internal/service/notification"
)

func AgentRoutes(prefix string, service *agentservice.Service, fanout *notification.Fanout) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		agentEndpoints := endpoints.NewAgentEndpoints(service, fanout)

		mux.HandleFunc(prefix+"/agents/register", s.MakeHTTPHandleFunc(agentEndpoints.Register))
		mux.HandleFunc(prefix+"/agents/login", s.MakeHTTPHandleFunc(agentEndpoints.Login))
		mux.HandleFunc(prefix+"/agents/refresh", s.MakeHTTPHandleFunc(agentEndpoints.Refresh))
		mux.HandleFunc(prefix+"/agents/me", s.MakeHTTPHandleFunc(agentEndpoints.Me, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/agents", s.MakeHTTPHandleFunc(agentEndpoints.Agents, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/agents/status", s.MakeHTTPHandleFunc(agentEndpoints.Status, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/agents/capacity", s.MakeHTTPHandleFunc(agentEndpoints.Capacity, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/agents/preferences", s.MakeHTTPHandleFunc(agentEndpoints.Preferences, middleware.ValidateAgentJWT))
	}
}
