package tenant

import (
	"context"
	"errors"
	"strings"

	"support-hub-backend/internal/database"
	"support-hub-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("tenant repository: not found")

type Repository interface {
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	UpdateTenantSettings(ctx context.Context, tenantID string, settings map[string]interface{}) (model.TenantItem, error)
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

func (r *DynamoRepository) UpdateTenantSettings(ctx context.Context, tenantID string, settings map[string]interface{}) (model.TenantItem, error) {
	settingsAV, err := attributevalue.Marshal(settings)
	if err != nil {
		return model.TenantItem{}, err
	}

	var updated model.TenantItem
	err = r.db.Client.UpdateItem(
		ctx,
		model.TenantsTable,
		map[string]types.AttributeValue{
			"tenantId": &types.AttributeValueMemberS{Value: tenantID},
		},
		"SET #settings = :settings",
		map[string]types.AttributeValue{
			":settings": settingsAV,
		},
		map[string]string{
			"#settings": "settings",
		},
		&updated,
	)
	if err != nil {
		return model.TenantItem{}, err
	}
	return updated, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
