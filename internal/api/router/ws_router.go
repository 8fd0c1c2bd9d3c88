package router

import (
	"net/http"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/endpoints"
)

func WebsocketRoutes(prefix string, identities endpoints.IdentitySource) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		wsEndpoints := endpoints.NewWebsocketEndpoints(s.Handler(), identities, prefix)

		mux.HandleFunc(prefix+"/conversations/", s.MakeHTTPHandleFunc(wsEndpoints.ConversationWebsocket))
		mux.HandleFunc(prefix+"/notifications", s.MakeHTTPHandleFunc(wsEndpoints.NotificationsWebsocket))
		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(wsEndpoints.Rooms))
	}
}
