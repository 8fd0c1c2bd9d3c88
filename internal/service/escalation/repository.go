package escalation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"support-hub-backend/internal/database"
	"support-hub-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("escalation repository: not found")

type Repository interface {
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	GetConversation(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error)
	GetConversationByCustomerRef(ctx context.Context, tenantID, customerRef string) (model.ConversationItem, error)
	CreateConversation(ctx context.Context, conversation model.ConversationItem) error
	UpdateConversationState(ctx context.Context, conversation model.ConversationItem) error
	CreateHandoff(ctx context.Context, handoff model.HandoffItem) error
	LatestHandoff(ctx context.Context, conversationID string) (model.HandoffItem, error)
	UpdateHandoff(ctx context.Context, conversationID, handoffID string, status model.HandoffStatus, at, toAgentID string) error
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

func (r *DynamoRepository) GetConversation(ctx context.Context, tenantID, conversationID string) (model.ConversationItem, error) {
	var conversation model.ConversationItem
	err := r.db.Client.GetItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(tenantID, conversationID)},
		},
		&conversation,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, ErrNotFound
		}
		return model.ConversationItem{}, err
	}
	return conversation, nil
}

func (r *DynamoRepository) GetConversationByCustomerRef(ctx context.Context, tenantID, customerRef string) (model.ConversationItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ConversationsTable,
		aws.String("byCustomerRef"),
		"tenantId = :tenantId AND customerRef = :customerRef",
		map[string]types.AttributeValue{
			":tenantId":    &types.AttributeValueMemberS{Value: tenantID},
			":customerRef": &types.AttributeValueMemberS{Value: customerRef},
		},
		nil,
		nil,
	)
	if err != nil && !isIndexNotFound(err) {
		return model.ConversationItem{}, err
	}

	if (err != nil && isIndexNotFound(err)) || items == nil {
		items, err = r.db.Client.ScanItems(
			ctx,
			model.ConversationsTable,
			"tenantId = :tenantId AND customerRef = :customerRef",
			map[string]types.AttributeValue{
				":tenantId":    &types.AttributeValueMemberS{Value: tenantID},
				":customerRef": &types.AttributeValueMemberS{Value: customerRef},
			},
			nil,
		)
		if err != nil {
			return model.ConversationItem{}, err
		}
	}

	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conversation model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
			return model.ConversationItem{}, err
		}
		conversations = append(conversations, conversation)
	}

	// Prefer the open conversation; a customer ref can acquire a new
	// conversation after the previous one completed.
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt > conversations[j].CreatedAt
	})
	for _, c := range conversations {
		if c.Status != model.ConversationStatusCompleted {
			return c, nil
		}
	}
	if len(conversations) > 0 {
		return conversations[0], nil
	}
	return model.ConversationItem{}, ErrNotFound
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conversation)
}

func (r *DynamoRepository) UpdateConversationState(ctx context.Context, conversation model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conversation)
}

func (r *DynamoRepository) CreateHandoff(ctx context.Context, handoff model.HandoffItem) error {
	return r.db.Client.PutItem(ctx, model.HandoffsTable, handoff)
}

func (r *DynamoRepository) LatestHandoff(ctx context.Context, conversationID string) (model.HandoffItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.HandoffsTable,
		aws.String("byConversation"),
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
	)
	if err != nil {
		return model.HandoffItem{}, err
	}
	if len(items) == 0 {
		return model.HandoffItem{}, ErrNotFound
	}

	handoffs := make([]model.HandoffItem, 0, len(items))
	for _, item := range items {
		var handoff model.HandoffItem
		if err := attributevalue.UnmarshalMap(item, &handoff); err != nil {
			return model.HandoffItem{}, err
		}
		handoffs = append(handoffs, handoff)
	}

	sort.Slice(handoffs, func(i, j int) bool {
		return handoffs[i].InitiatedAt > handoffs[j].InitiatedAt
	})
	return handoffs[0], nil
}

func (r *DynamoRepository) UpdateHandoff(ctx context.Context, conversationID, handoffID string, status model.HandoffStatus, at, toAgentID string) error {
	updateExpr := "SET #status = :status"
	exprValues := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
	}
	attrNames := map[string]string{
		"#status": "status",
	}

	switch status {
	case model.HandoffStatusAccepted:
		updateExpr += ", #acceptedAt = :at"
		attrNames["#acceptedAt"] = "acceptedAt"
		exprValues[":at"] = &types.AttributeValueMemberS{Value: at}
	case model.HandoffStatusCompleted, model.HandoffStatusFailed:
		updateExpr += ", #completedAt = :at"
		attrNames["#completedAt"] = "completedAt"
		exprValues[":at"] = &types.AttributeValueMemberS{Value: at}
	}

	if toAgentID != "" {
		updateExpr += ", #toAgentId = :toAgentId"
		attrNames["#toAgentId"] = "toAgentId"
		exprValues[":toAgentId"] = &types.AttributeValueMemberS{Value: toAgentID}
	}

	return r.db.Client.UpdateItem(
		ctx,
		model.HandoffsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.HandoffPK(conversationID, handoffID)},
		},
		updateExpr,
		exprValues,
		attrNames,
		nil,
	)
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
