package router

import (
	"net/http"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/endpoints"
	handoffservice "support-hub-backend/internal/service/handoff"
)

// WebhookRoutes exposes the external handoff webhook. Authentication is
// the HMAC signature checked inside the service, not a JWT.
func WebhookRoutes(prefix string, service *handoffservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		webhookEndpoints := endpoints.NewWebhookEndpoints(service)

		mux.HandleFunc(prefix+"/webhooks/handoff", s.MakeHTTPHandleFunc(webhookEndpoints.Handoff))
	}
}
