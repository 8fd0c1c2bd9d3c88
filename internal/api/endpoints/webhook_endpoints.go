package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"support-hub-backend/internal/dto"
	handoffservice "support-hub-backend/internal/service/handoff"
)

type WebhookEndpoints interface {
	Handoff(http.ResponseWriter, *http.Request) error
}

type webhookEndpoints struct {
	service *handoffservice.Service
}

func NewWebhookEndpoints(service *handoffservice.Service) WebhookEndpoints {
	return &webhookEndpoints{
		service: service,
	}
}

func (h *webhookEndpoints) Handoff(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleHandoff,
	})
}

func (h *webhookEndpoints) handleHandoff(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Unable to read request body",
			ErrorLog:   fmt.Errorf("read handoff webhook body: %w", err),
		}
	}

	result, err := h.service.HandleWebhook(r.Context(), body, r.Header.Get("X-Hub-Signature-256"))
	if err != nil {
		var svcErr *handoffservice.Error
		if errors.As(err, &svcErr) && svcErr.Code == handoffservice.ErrorCodeUnauthorized {
			return &HTTPError{
				StatusCode: http.StatusUnauthorized,
				Message:    svcErr.Message,
				ErrorLog:   svcErr,
			}
		}
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("handoff webhook: %w", err),
		}
	}

	resp := dto.WebhookResponse{Status: "ok"}
	if result.Ignored {
		resp.Status = "ignored"
		resp.IgnoreReason = result.IgnoreReason
	} else {
		resp.Action = result.Action
		resp.AgentID = result.AgentID
	}

	return WriteJSON(w, http.StatusOK, resp)
}
