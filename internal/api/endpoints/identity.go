package endpoints

import (
	agentservice "support-hub-backend/internal/service/agent"
)

// IdentitySource resolves the calling agent from the Authorization
// header. Satisfied by agent.Service.
type IdentitySource interface {
	IdentityFromAuthorizationHeader(header string) (agentservice.Identity, error)
}
