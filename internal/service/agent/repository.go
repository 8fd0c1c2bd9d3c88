package agent

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"support-hub-backend/internal/database"
	"support-hub-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("agent repository: not found")

type Repository interface {
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	CreateAgent(ctx context.Context, agent model.AgentItem) error
	GetAgent(ctx context.Context, tenantID, agentID string) (model.AgentItem, error)
	FindAgentByEmail(ctx context.Context, tenantID, email string) (model.AgentItem, error)
	ListAgentsByTenant(ctx context.Context, tenantID string) ([]model.AgentItem, error)
	UpdateAgentStatus(ctx context.Context, tenantID, agentID string, status model.AgentStatus, updatedAt string) (model.AgentItem, error)
	UpdateAgentCapacity(ctx context.Context, tenantID, agentID string, maxConcurrent int, updatedAt string) (model.AgentItem, error)
	GetPreferences(ctx context.Context, tenantID, agentID string) (model.NotificationPreferenceItem, error)
	PutPreferences(ctx context.Context, prefs model.NotificationPreferenceItem) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.GetItem(
		ctx,
		model.TenantsTable,
		map[string]types.AttributeValue{
			"tenantId": &types.AttributeValueMemberS{Value: tenantID},
		},
		&tenant,
	)
	if err != nil {
		if isNotFound(err) {
			return model.TenantItem{}, ErrNotFound
		}
		return model.TenantItem{}, err
	}
	return tenant, nil
}

func (r *DynamoRepository) CreateAgent(ctx context.Context, agent model.AgentItem) error {
	return r.db.Client.PutItem(ctx, model.AgentsTable, agent)
}

func (r *DynamoRepository) GetAgent(ctx context.Context, tenantID, agentID string) (model.AgentItem, error) {
	var agent model.AgentItem
	err := r.db.Client.GetItem(
		ctx,
		model.AgentsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.AgentPK(tenantID, agentID)},
		},
		&agent,
	)
	if err != nil {
		if isNotFound(err) {
			return model.AgentItem{}, ErrNotFound
		}
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) FindAgentByEmail(ctx context.Context, tenantID, email string) (model.AgentItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.AgentsTable,
		aws.String("byEmail"),
		"email = :email AND tenantId = :tenantId",
		map[string]types.AttributeValue{
			":email":    &types.AttributeValueMemberS{Value: email},
			":tenantId": &types.AttributeValueMemberS{Value: tenantID},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.AgentItem{}, err
	}

	if len(items) == 0 {
		return model.AgentItem{}, ErrNotFound
	}

	var agent model.AgentItem
	if err := attributevalue.UnmarshalMap(items[0], &agent); err != nil {
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) ListAgentsByTenant(ctx context.Context, tenantID string) ([]model.AgentItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.AgentsTable,
		aws.String("byTenant"),
		"tenantId = :tenantId",
		map[string]types.AttributeValue{
			":tenantId": &types.AttributeValueMemberS{Value: tenantID},
		},
		nil,
		nil,
	)
	if err != nil {
		return nil, err
	}

	agents := make([]model.AgentItem, 0, len(items))
	for _, item := range items {
		var agent model.AgentItem
		if err := attributevalue.UnmarshalMap(item, &agent); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

func (r *DynamoRepository) UpdateAgentStatus(ctx context.Context, tenantID, agentID string, status model.AgentStatus, updatedAt string) (model.AgentItem, error) {
	var updated model.AgentItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.AgentsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.AgentPK(tenantID, agentID)},
		},
		"SET #status = :status, #updatedAt = :updatedAt",
		map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(status)},
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt},
		},
		map[string]string{
			"#status":    "status",
			"#updatedAt": "updatedAt",
		},
		&updated,
	)
	if err != nil {
		return model.AgentItem{}, err
	}
	return updated, nil
}

func (r *DynamoRepository) UpdateAgentCapacity(ctx context.Context, tenantID, agentID string, maxConcurrent int, updatedAt string) (model.AgentItem, error) {
	var updated model.AgentItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.AgentsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.AgentPK(tenantID, agentID)},
		},
		"SET #maxConcurrent = :maxConcurrent, #updatedAt = :updatedAt",
		map[string]types.AttributeValue{
			":maxConcurrent": &types.AttributeValueMemberN{Value: strconv.Itoa(maxConcurrent)},
			":updatedAt":     &types.AttributeValueMemberS{Value: updatedAt},
		},
		map[string]string{
			"#maxConcurrent": "maxConcurrent",
			"#updatedAt":     "updatedAt",
		},
		&updated,
	)
	if err != nil {
		return model.AgentItem{}, err
	}
	return updated, nil
}

func (r *DynamoRepository) GetPreferences(ctx context.Context, tenantID, agentID string) (model.NotificationPreferenceItem, error) {
	var prefs model.NotificationPreferenceItem
	err := r.db.Client.GetItem(
		ctx,
		model.NotificationPreferencesTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.AgentPK(tenantID, agentID)},
		},
		&prefs,
	)
	if err != nil {
		if isNotFound(err) {
			return model.NotificationPreferenceItem{}, ErrNotFound
		}
		return model.NotificationPreferenceItem{}, err
	}
	return prefs, nil
}

func (r *DynamoRepository) PutPreferences(ctx context.Context, prefs model.NotificationPreferenceItem) error {
	return r.db.Client.PutItem(ctx, model.NotificationPreferencesTable, prefs)
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
