package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"support-hub-backend/internal/model"
	"support-hub-backend/internal/service/assignment"
)

const (
	DefaultRoutingStrategy         = "round_robin"
	DefaultMaxInboundPerMinute     = 60
	DefaultMaxOutboundPerMinute    = 30
	DefaultDailyOutboundQuota      = 1000
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerTimeoutSeconds   = 60
)

var allowedStrategies = map[string]bool{
	"round_robin":  true,
	"least_loaded": true,
	"random":       true,
}

// RoutingSettings controls how escalated conversations flow to agents and
// how hard the tenant may push the outbound channel.
type RoutingSettings struct {
	Strategy                string
	AutoAssignEnabled       bool
	MaxInboundPerMinute     int
	MaxOutboundPerMinute    int
	DailyOutboundQuota      int
	BreakerFailureThreshold int
	BreakerTimeoutSeconds   int
}

type RoutingSettingsInput struct {
	Strategy                string
	AutoAssignEnabled       *bool
	MaxInboundPerMinute     *int
	MaxOutboundPerMinute    *int
	DailyOutboundQuota      *int
	BreakerFailureThreshold *int
	BreakerTimeoutSeconds   *int
}

func defaultRoutingSettings() RoutingSettings {
	return RoutingSettings{
		Strategy:                DefaultRoutingStrategy,
		AutoAssignEnabled:       true,
		MaxInboundPerMinute:     DefaultMaxInboundPerMinute,
		MaxOutboundPerMinute:    DefaultMaxOutboundPerMinute,
		DailyOutboundQuota:      DefaultDailyOutboundQuota,
		BreakerFailureThreshold: DefaultBreakerFailureThreshold,
		BreakerTimeoutSeconds:   DefaultBreakerTimeoutSeconds,
	}
}

func RoutingSettingsFromTenant(tenant model.TenantItem) RoutingSettings {
	return routingSettingsFromMap(tenant.Settings)
}

func routingSettingsFromMap(settings map[string]interface{}) RoutingSettings {
	result := defaultRoutingSettings()
	if settings == nil {
		return result
	}

	routingRaw, ok := settings["routing"]
	if !ok {
		return result
	}

	routingMap, ok := routingRaw.(map[string]interface{})
	if !ok {
		return result
	}

	if val, ok := routingMap["strategy"].(string); ok && allowedStrategies[val] {
		result.Strategy = val
	}
	if val, ok := routingMap["autoAssignEnabled"].(bool); ok {
		result.AutoAssignEnabled = val
	}
	if val, ok := intFromAny(routingMap["maxInboundPerMinute"]); ok && val > 0 {
		result.MaxInboundPerMinute = val
	}
	if val, ok := intFromAny(routingMap["maxOutboundPerMinute"]); ok && val > 0 {
		result.MaxOutboundPerMinute = val
	}
	if val, ok := intFromAny(routingMap["dailyOutboundQuota"]); ok && val > 0 {
		result.DailyOutboundQuota = val
	}
	if val, ok := intFromAny(routingMap["breakerFailureThreshold"]); ok && val > 0 {
		result.BreakerFailureThreshold = val
	}
	if val, ok := intFromAny(routingMap["breakerTimeoutSeconds"]); ok && val > 0 {
		result.BreakerTimeoutSeconds = val
	}

	return result
}

// intFromAny tolerates the number types settings maps come back with after
// a round trip through JSON or attributevalue.
func intFromAny(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func (r RoutingSettings) toMap() map[string]interface{} {
	return map[string]interface{}{
		"strategy":                r.Strategy,
		"autoAssignEnabled":       r.AutoAssignEnabled,
		"maxInboundPerMinute":     r.MaxInboundPerMinute,
		"maxOutboundPerMinute":    r.MaxOutboundPerMinute,
		"dailyOutboundQuota":      r.DailyOutboundQuota,
		"breakerFailureThreshold": r.BreakerFailureThreshold,
		"breakerTimeoutSeconds":   r.BreakerTimeoutSeconds,
	}
}

func normalizeRoutingSettings(current RoutingSettings, input RoutingSettingsInput) (RoutingSettings, error) {
	settings := current

	if trimmed := strings.TrimSpace(input.Strategy); trimmed != "" {
		if !allowedStrategies[trimmed] {
			return RoutingSettings{}, newError(ErrorCodeValidation, "strategy must be one of round_robin, least_loaded, random", nil)
		}
		settings.Strategy = trimmed
	}
	if input.AutoAssignEnabled != nil {
		settings.AutoAssignEnabled = *input.AutoAssignEnabled
	}
	if input.MaxInboundPerMinute != nil {
		if *input.MaxInboundPerMinute <= 0 {
			return RoutingSettings{}, newError(ErrorCodeValidation, "maxInboundPerMinute must be positive", nil)
		}
		settings.MaxInboundPerMinute = *input.MaxInboundPerMinute
	}
	if input.MaxOutboundPerMinute != nil {
		if *input.MaxOutboundPerMinute <= 0 {
			return RoutingSettings{}, newError(ErrorCodeValidation, "maxOutboundPerMinute must be positive", nil)
		}
		settings.MaxOutboundPerMinute = *input.MaxOutboundPerMinute
	}
	if input.DailyOutboundQuota != nil {
		if *input.DailyOutboundQuota <= 0 {
			return RoutingSettings{}, newError(ErrorCodeValidation, "dailyOutboundQuota must be positive", nil)
		}
		settings.DailyOutboundQuota = *input.DailyOutboundQuota
	}
	if input.BreakerFailureThreshold != nil {
		if *input.BreakerFailureThreshold <= 0 {
			return RoutingSettings{}, newError(ErrorCodeValidation, "breakerFailureThreshold must be positive", nil)
		}
		settings.BreakerFailureThreshold = *input.BreakerFailureThreshold
	}
	if input.BreakerTimeoutSeconds != nil {
		if *input.BreakerTimeoutSeconds <= 0 {
			return RoutingSettings{}, newError(ErrorCodeValidation, "breakerTimeoutSeconds must be positive", nil)
		}
		settings.BreakerTimeoutSeconds = *input.BreakerTimeoutSeconds
	}

	return settings, nil
}

func cloneSettings(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return make(map[string]interface{})
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *Service) GetRoutingSettings(ctx context.Context, tenantID string) (RoutingSettings, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return RoutingSettings{}, err
	}
	return routingSettingsFromMap(tenant.Settings), nil
}

func (s *Service) UpdateRoutingSettings(ctx context.Context, tenantID string, params RoutingSettingsInput) (RoutingSettings, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return RoutingSettings{}, err
	}

	normalized, err := normalizeRoutingSettings(routingSettingsFromMap(tenant.Settings), params)
	if err != nil {
		return RoutingSettings{}, err
	}

	nextSettings := cloneSettings(tenant.Settings)
	nextSettings["routing"] = normalized.toMap()

	if _, err := s.repo.UpdateTenantSettings(ctx, tenant.TenantID, nextSettings); err != nil {
		if errors.Is(err, ErrNotFound) {
			return RoutingSettings{}, newError(ErrorCodeNotFound, "tenant not found", err)
		}
		return RoutingSettings{}, newError(ErrorCodeInternal, "failed to update routing settings", err)
	}

	return normalized, nil
}

// Routing satisfies assignment.SettingsSource so the auto-assignment engine
// reads strategy and enablement straight from tenant settings.
func (s *Service) Routing(ctx context.Context, tenantID string) (assignment.Routing, error) {
	settings, err := s.GetRoutingSettings(ctx, tenantID)
	if err != nil {
		return assignment.Routing{}, err
	}
	return assignment.Routing{
		Strategy: assignment.StrategyName(settings.Strategy),
		Enabled:  settings.AutoAssignEnabled,
	}, nil
}

// Throttles derives the limiter and breaker configuration the transport
// layer applies per tenant.
type Throttles struct {
	InboundPerMinute  int
	OutboundPerMinute int
	DailyQuota        int
	BreakerThreshold  int
	BreakerTimeout    time.Duration
}

func (s *Service) ThrottlesFor(ctx context.Context, tenantID string) (Throttles, error) {
	settings, err := s.GetRoutingSettings(ctx, tenantID)
	if err != nil {
		return Throttles{}, err
	}
	return Throttles{
		InboundPerMinute:  settings.MaxInboundPerMinute,
		OutboundPerMinute: settings.MaxOutboundPerMinute,
		DailyQuota:        settings.DailyOutboundQuota,
		BreakerThreshold:  settings.BreakerFailureThreshold,
		BreakerTimeout:    time.Duration(settings.BreakerTimeoutSeconds) * time.Second,
	}, nil
}
