package router

import (
	"net/http"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/endpoints"
	"support-hub-backend/internal/api/middleware"
	tenantservice "support-hub-backend/internal/service/tenant"
)

func TenantRoutes(prefix string, service *tenantservice.Service, identities endpoints.IdentitySource) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		tenantEndpoints := endpoints.NewTenantEndpoints(service, identities)

		mux.HandleFunc(prefix+"/tenant", s.MakeHTTPHandleFunc(tenantEndpoints.Tenant, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/tenant/routing", s.MakeHTTPHandleFunc(tenantEndpoints.RoutingSettings, middleware.ValidateAgentJWT))
	}
}
