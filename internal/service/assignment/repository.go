package assignment

import (
	"context"
	"errors"
	"strings"

	"support-hub-backend/internal/database"
	"support-hub-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("assignment repository: not found")
	// ErrSlotUnavailable means the reserve condition no longer held at
	// commit time: the agent went unavailable or filled up since selection.
	ErrSlotUnavailable = errors.New("assignment repository: agent slot unavailable")
)

type Repository interface {
	ListAvailableAgents(ctx context.Context, tenantID string) ([]model.AgentItem, error)
	GetAgent(ctx context.Context, tenantID, agentID string) (model.AgentItem, error)
	// ReserveAgentSlot atomically increments the agent's active count,
	// re-validating availability and capacity at commit time.
	ReserveAgentSlot(ctx context.Context, tenantID, agentID string) error
	ReleaseAgentSlot(ctx context.Context, tenantID, agentID string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) ListAvailableAgents(ctx context.Context, tenantID string) ([]model.AgentItem, error) {
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
	if err != nil && !isIndexNotFound(err) {
		return nil, err
	}

	if (err != nil && isIndexNotFound(err)) || items == nil {
		items, err = r.db.Client.ScanItems(
			ctx,
			model.AgentsTable,
			"tenantId = :tenantId",
			map[string]types.AttributeValue{
				":tenantId": &types.AttributeValueMemberS{Value: tenantID},
			},
			nil,
		)
		if err != nil {
			return nil, err
		}
	}

	agents := make([]model.AgentItem, 0, len(items))
	for _, item := range items {
		var agent model.AgentItem
		if err := attributevalue.UnmarshalMap(item, &agent); err != nil {
			return nil, err
		}
		if agent.Status != model.AgentStatusAvailable {
			continue
		}
		agents = append(agents, agent)
	}
	return agents, nil
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

func (r *DynamoRepository) ReserveAgentSlot(ctx context.Context, tenantID, agentID string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.AgentsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.AgentPK(tenantID, agentID)},
		},
		"SET #activeCount = #activeCount + :one",
		"#status = :available AND #activeCount < #maxConcurrent",
		map[string]types.AttributeValue{
			":one":       &types.AttributeValueMemberN{Value: "1"},
			":available": &types.AttributeValueMemberS{Value: string(model.AgentStatusAvailable)},
		},
		map[string]string{
			"#activeCount":   "activeCount",
			"#status":        "status",
			"#maxConcurrent": "maxConcurrent",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrSlotUnavailable
	}
	return err
}

func (r *DynamoRepository) ReleaseAgentSlot(ctx context.Context, tenantID, agentID string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.AgentsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.AgentPK(tenantID, agentID)},
		},
		"SET #activeCount = #activeCount - :one",
		"#activeCount > :zero",
		map[string]types.AttributeValue{
			":one":  &types.AttributeValueMemberN{Value: "1"},
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
		map[string]string{
			"#activeCount": "activeCount",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		// Already at zero; releasing twice is harmless.
		return nil
	}
	return err
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}

func isIndexNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "index") && strings.Contains(msg, "not") && strings.Contains(msg, "found")
}
