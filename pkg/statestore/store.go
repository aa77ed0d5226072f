// Package statestore defines the durable persistence contract for agent
// state, HITL requests, tenants, and golden paths, plus an in-memory
// implementation for tests and single-process deployments. The postgres
// subpackage provides the production-grade implementation.
//
// Grounded on pkg/database/client.go's Client wrapper; since the ent
// generated client that wrapper depended on cannot be reproduced without
// running `go generate`, this contract is expressed directly in terms of
// pkg/model's domain structs rather than ent's generated query builders.
package statestore

import (
	"context"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

// AgentStateFilter narrows ListAgentStates.
type AgentStateFilter struct {
	TenantID string
	Status   model.Status
}

// HITLRequestFilter narrows ListHITLRequests.
type HITLRequestFilter struct {
	TenantID string
	Status   model.RequestStatus
	Type     model.RequestType
}

// Store is the durable persistence contract. Implementations must be safe
// for concurrent use.
type Store interface {
	SaveAgentState(ctx context.Context, s *model.AgentState) error
	GetAgentState(ctx context.Context, executionID string) (*model.AgentState, error)
	ListAgentStates(ctx context.Context, filter AgentStateFilter) ([]*model.AgentState, error)

	SaveHITLRequest(ctx context.Context, r *model.HITLRequest) error
	GetHITLRequest(ctx context.Context, requestID string) (*model.HITLRequest, error)
	ListHITLRequests(ctx context.Context, filter HITLRequestFilter) ([]*model.HITLRequest, error)

	SaveTenant(ctx context.Context, t *model.Tenant) error
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]*model.Tenant, error)

	SaveGoldenPath(ctx context.Context, p *model.GoldenPath) error
	GetGoldenPath(ctx context.Context, pathID string) (*model.GoldenPath, error)
	ListGoldenPaths(ctx context.Context, blueprint string) ([]*model.GoldenPath, error)

	// PurgeCompletedAgentStates deletes terminal (spec §4.1) agent states
	// whose CompletedAt is older than olderThan, for retention enforcement.
	// Returns the number of rows removed.
	PurgeCompletedAgentStates(ctx context.Context, olderThan time.Duration) (int, error)

	Close() error
}
