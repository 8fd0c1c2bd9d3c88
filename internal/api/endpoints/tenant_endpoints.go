package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"support-hub-backend/internal/dto"
	tenantservice "support-hub-backend/internal/service/tenant"
)

type TenantEndpoints interface {
	Tenant(http.ResponseWriter, *http.Request) error
	RoutingSettings(http.ResponseWriter, *http.Request) error
}

type tenantEndpoints struct {
	service    *tenantservice.Service
	identities IdentitySource
}

func NewTenantEndpoints(service *tenantservice.Service, identities IdentitySource) TenantEndpoints {
	return &tenantEndpoints{
		service:    service,
		identities: identities,
	}
}

func (h *tenantEndpoints) Tenant(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleGetTenant,
	})
}

func (h *tenantEndpoints) RoutingSettings(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:   h.handleGetRoutingSettings,
		http.MethodPatch: h.handleUpdateRoutingSettings,
	})
}

func (h *tenantEndpoints) handleGetTenant(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	tenant, err := h.service.GetTenant(r.Context(), identity.TenantID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

func (h *tenantEndpoints) handleGetRoutingSettings(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	settings, err := h.service.GetRoutingSettings(r.Context(), identity.TenantID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toRoutingSettingsResponse(settings))
}

func (h *tenantEndpoints) handleUpdateRoutingSettings(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.identities.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return h.identityError(err)
	}

	var req dto.RoutingSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode routing settings request: %w", err),
		}
	}

	settings, err := h.service.UpdateRoutingSettings(r.Context(), identity.TenantID, tenantservice.RoutingSettingsInput{
		Strategy:                req.Strategy,
		AutoAssignEnabled:       req.AutoAssignEnabled,
		MaxInboundPerMinute:     req.MaxInboundPerMinute,
		MaxOutboundPerMinute:    req.MaxOutboundPerMinute,
		DailyOutboundQuota:      req.DailyOutboundQuota,
		BreakerFailureThreshold: req.BreakerFailureThreshold,
		BreakerTimeoutSeconds:   req.BreakerTimeoutSeconds,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toRoutingSettingsResponse(settings))
}

func (h *tenantEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*tenantservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("tenant service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case tenantservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case tenantservice.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: errorLog}
	case tenantservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func (h *tenantEndpoints) identityError(err error) error {
	return &HTTPError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Unauthorized",
		ErrorLog:   fmt.Errorf("resolve agent identity: %w", err),
	}
}
