package router

import (
	"net/http"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/endpoints"
	"support-hub-backend/internal/api/middleware"
	"support-hub-backend/internal/service/assignment"
	escalationservice "support-hub-backend/internal/service/escalation"
	"support-hub-backend/internal/service/notification"
)

// EscalationRoutes wires the escalation intake plus the agent-facing
// conversation actions. The engine and fanout are shared with the
// webhook routes so round-robin state and room publishing stay
// consistent across entry points.
func EscalationRoutes(
	prefix string,
	service *escalationservice.Service,
	engine *assignment.Engine,
	fanout *notification.Fanout,
	identities endpoints.IdentitySource,
) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		escalationEndpoints := endpoints.NewEscalationEndpoints(service, engine, fanout, identities, prefix)

		mux.HandleFunc(prefix+"/escalations", s.MakeHTTPHandleFunc(escalationEndpoints.Escalations))
		mux.HandleFunc(prefix+"/conversations/", s.MakeHTTPHandleFunc(escalationEndpoints.Conversations, middleware.ValidateAgentJWT))
	}
}
