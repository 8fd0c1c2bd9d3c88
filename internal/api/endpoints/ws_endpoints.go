package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	agentservice "support-hub-backend/internal/service/agent"
	"support-hub-backend/internal/websocket"
)

type WebsocketEndpoints interface {
	ConversationWebsocket(http.ResponseWriter, *http.Request) error
	NotificationsWebsocket(http.ResponseWriter, *http.Request) error
	Rooms(http.ResponseWriter, *http.Request) error
}

type websocketEndpoints struct {
	handler    *websocket.Handler
	identities IdentitySource
	prefix     string
}

func NewWebsocketEndpoints(handler *websocket.Handler, identities IdentitySource, prefix string) WebsocketEndpoints {
	return &websocketEndpoints{
		handler:    handler,
		identities: identities,
		prefix:     strings.TrimRight(prefix, "/") + "/conversations/",
	}
}

// ConversationWebsocket joins the caller to a single conversation room.
func (h *websocketEndpoints) ConversationWebsocket(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("websocket handler missing"),
		}
	}

	convID := strings.Trim(strings.TrimPrefix(r.URL.Path, h.prefix), "/")
	if convID == "" {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("websocket conversation id missing"),
		}
	}

	identity, err := h.identityFromRequest(r)
	if err != nil {
		return err
	}

	roomID := websocket.ConversationRoom(convID)
	h.handler.CreateRoom(roomID)
	h.handler.JoinRoom(w, r, roomID, identity.AgentID)
	return nil
}

// NotificationsWebsocket joins the agent to the tenant broadcast room, or
// to their personal targeted room when scope=personal.
func (h *websocketEndpoints) NotificationsWebsocket(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("websocket handler missing"),
		}
	}

	identity, err := h.identityFromRequest(r)
	if err != nil {
		return err
	}

	roomID := websocket.AgentsRoom(identity.TenantID)
	if r.URL.Query().Get("scope") == "personal" {
		roomID = websocket.AgentRoom(identity.TenantID, identity.AgentID)
	}

	h.handler.CreateRoom(roomID)
	h.handler.JoinRoom(w, r, roomID, identity.AgentID)
	return nil
}

// Rooms lists the rooms currently open on this instance.
func (h *websocketEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("websocket handler missing"),
		}
	}

	if _, err := h.identityFromRequest(r); err != nil {
		return err
	}

	h.handler.GetRooms(w, r)
	return nil
}

// identityFromRequest accepts the Authorization header or, for browser
// websocket clients that cannot set headers, a token query parameter.
func (h *websocketEndpoints) identityFromRequest(r *http.Request) (agentservice.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
			header = "Bearer " + token
		}
	}

	identity, err := h.identities.IdentityFromAuthorizationHeader(header)
	if err != nil {
		return agentservice.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("websocket identity: %w", err),
		}
	}
	if identity.TenantID == "" {
		return agentservice.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("websocket identity missing tenant"),
		}
	}
	return identity, nil
}
