package model

import "time"

// Tier names a tenant's service tier, keying into config.TenantTierConfig.
type Tier string

const (
	TierFree         Tier = "free"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// TenantStatus is the lifecycle status of a tenant record.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantDeleted   TenantStatus = "deleted"
)

// Tenant is a billable customer boundary enforcing agent/execution/rate/token
// quotas (spec §4.6).
type Tenant struct {
	TenantID  string
	Name      string
	Tier      Tier
	Status    TenantStatus
	CreatedAt time.Time

	// Usage counters, reset on the cadence described by spec §4.6.
	ActiveAgents          int
	ConcurrentExecutions  int
	RequestsThisMinute    int
	MinuteWindowStartedAt time.Time
	TokensUsedToday       int
	DayWindowStartedAt    time.Time
}
