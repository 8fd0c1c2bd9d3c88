package agent

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"support-hub-backend/internal/database"
	internaljwt "support-hub-backend/internal/jwt"
	"support-hub-backend/internal/model"

	"github.com/google/uuid"
)

const defaultMaxConcurrent = 3

var allowedStatuses = map[model.AgentStatus]bool{
	model.AgentStatusAvailable: true,
	model.AgentStatusBusy:      true,
	model.AgentStatusOffline:   true,
	model.AgentStatusOnBreak:   true,
}

type Service struct {
	repo Repository
	now  func() time.Time
}

var createTokenWithRefresh = internaljwt.CreateTokenWithRefresh

func SetTokenIssuer(issuer func(internaljwt.Agent, internaljwt.Role, int64) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		createTokenWithRefresh = internaljwt.CreateTokenWithRefresh
		return
	}
	createTokenWithRefresh = issuer
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (AuthResult, error) {
	tenantID := strings.TrimSpace(params.TenantID)
	name := strings.TrimSpace(params.Name)
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if tenantID == "" || name == "" || email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	maxConcurrent := params.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeNotFound, "tenant not found", err)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to fetch tenant", err)
	}

	if _, err := s.repo.FindAgentByEmail(ctx, tenantID, email); err == nil {
		return AuthResult{}, newError(ErrorCodeConflict, "agent with this email already exists", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to check existing agent", err)
	}

	newAgent, err := internaljwt.NewAgent(internaljwt.RegisterAgent{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to prepare agent", err)
	}

	agentID := uuid.NewString()
	now := s.now().UTC().Format(time.RFC3339)

	item := model.AgentItem{
		PK:            model.AgentPK(tenantID, agentID),
		TenantID:      tenantID,
		AgentID:       agentID,
		Email:         email,
		Name:          name,
		Status:        model.AgentStatusOffline,
		MaxConcurrent: maxConcurrent,
		Priority:      params.Priority,
		Skills:        params.Skills,
		PasswordHash:  newAgent.PasswordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.CreateAgent(ctx, item); err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to save agent", err)
	}

	if err := s.repo.PutPreferences(ctx, model.DefaultNotificationPreferences(tenantID, agentID)); err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to save default preferences", err)
	}

	newAgent.Id = agentID
	newAgent.TenantID = tenantID

	tokens, err := createTokenWithRefresh(newAgent, internaljwt.RoleAgent, 0)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		Agent:  item,
		Tenant: tenant,
		Tokens: tokens,
	}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	tenantID := strings.TrimSpace(params.TenantID)
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if tenantID == "" || email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	agent, err := s.repo.FindAgentByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}

	if !internaljwt.ValidatePassword(agent.PasswordHash, password) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeNotFound, "tenant not found", err)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to fetch tenant", err)
	}

	jwtAgent := internaljwt.Agent{
		Id:           agent.AgentID,
		TenantID:     agent.TenantID,
		Email:        agent.Email,
		PasswordHash: agent.PasswordHash,
	}

	tokens, err := createTokenWithRefresh(jwtAgent, internaljwt.RoleAgent, 0)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		Agent:  agent,
		Tenant: tenant,
		Tokens: tokens,
	}, nil
}

func (s *Service) Me(ctx context.Context, identity Identity) (model.AgentItem, error) {
	agentID := strings.TrimSpace(identity.AgentID)
	tenantID := strings.TrimSpace(identity.TenantID)

	if agentID == "" || tenantID == "" {
		return model.AgentItem{}, newError(ErrorCodeUnauthorized, "invalid agent identity", nil)
	}

	agent, err := s.repo.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AgentItem{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}
	return agent, nil
}

func (s *Service) ListAgents(ctx context.Context, tenantID string) ([]model.AgentItem, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, newError(ErrorCodeValidation, "tenantId is required", nil)
	}

	agents, err := s.repo.ListAgentsByTenant(ctx, tenantID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list agents", err)
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Name < agents[j].Name
	})
	return agents, nil
}

// SetStatus records the agent's availability. Going off shift never blocks
// on active conversations; the agent just stops receiving new ones.
func (s *Service) SetStatus(ctx context.Context, tenantID, agentID string, status model.AgentStatus) (model.AgentItem, error) {
	tenantID = strings.TrimSpace(tenantID)
	agentID = strings.TrimSpace(agentID)

	if tenantID == "" || agentID == "" {
		return model.AgentItem{}, newError(ErrorCodeValidation, "tenantId and agentId are required", nil)
	}
	if !allowedStatuses[status] {
		return model.AgentItem{}, newError(ErrorCodeValidation, "invalid agent status", nil)
	}

	if _, err := s.repo.GetAgent(ctx, tenantID, agentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AgentItem{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}

	updated, err := s.repo.UpdateAgentStatus(ctx, tenantID, agentID, status, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to update agent status", err)
	}
	return updated, nil
}

func (s *Service) UpdateCapacity(ctx context.Context, tenantID, agentID string, maxConcurrent int) (model.AgentItem, error) {
	if maxConcurrent <= 0 {
		return model.AgentItem{}, newError(ErrorCodeValidation, "maxConcurrent must be positive", nil)
	}

	if _, err := s.repo.GetAgent(ctx, tenantID, agentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AgentItem{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}

	updated, err := s.repo.UpdateAgentCapacity(ctx, tenantID, agentID, maxConcurrent, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to update agent capacity", err)
	}
	return updated, nil
}

func (s *Service) GetPreferences(ctx context.Context, tenantID, agentID string) (model.NotificationPreferenceItem, error) {
	tenantID = strings.TrimSpace(tenantID)
	agentID = strings.TrimSpace(agentID)

	if tenantID == "" || agentID == "" {
		return model.NotificationPreferenceItem{}, newError(ErrorCodeValidation, "tenantId and agentId are required", nil)
	}

	prefs, err := s.repo.GetPreferences(ctx, tenantID, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.DefaultNotificationPreferences(tenantID, agentID), nil
		}
		return model.NotificationPreferenceItem{}, newError(ErrorCodeInternal, "failed to fetch preferences", err)
	}
	return prefs, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, tenantID, agentID string, input PreferencesInput) (model.NotificationPreferenceItem, error) {
	prefs, err := s.GetPreferences(ctx, tenantID, agentID)
	if err != nil {
		return model.NotificationPreferenceItem{}, err
	}

	if input.NotifyOnStandard != nil {
		prefs.NotifyOnStandard = *input.NotifyOnStandard
	}
	if input.NotifyOnHigh != nil {
		prefs.NotifyOnHigh = *input.NotifyOnHigh
	}
	if input.NotifyOnCritical != nil {
		prefs.NotifyOnCritical = *input.NotifyOnCritical
	}
	if input.PushEnabled != nil {
		prefs.PushEnabled = *input.PushEnabled
	}
	if input.AudioEnabled != nil {
		prefs.AudioEnabled = *input.AudioEnabled
	}
	if input.EmailEnabled != nil {
		prefs.EmailEnabled = *input.EmailEnabled
	}
	prefs.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.repo.PutPreferences(ctx, prefs); err != nil {
		return model.NotificationPreferenceItem{}, newError(ErrorCodeInternal, "failed to save preferences", err)
	}
	return prefs, nil
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return s.identityFromToken(token)
}

func (s *Service) identityFromToken(token string) (Identity, error) {
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleAgent)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}

	agentID, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	tenantID, _ := claims["tenantId"].(string)

	if agentID == "" || tenantID == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "token missing identifiers", nil)
	}

	return Identity{
		AgentID:  agentID,
		TenantID: tenantID,
		Email:    email,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
