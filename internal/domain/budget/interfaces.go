package budget

import "context"

// SettingsRepository provides access to the per-tenant settings rows.
type SettingsRepository interface {
	// GetSettings returns the tenant's overrides, or repository.ErrNotFound
	// for unknown tenants.
	GetSettings(ctx context.Context, clientID string) (*Overrides, error)
}
