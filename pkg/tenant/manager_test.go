package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

func testConfig() *config.Config {
	return &config.Config{TenantTiers: config.DefaultTenantTiers()}
}

func TestAdmitAgentCreation_RejectsOverMaxAgents(t *testing.T) {
	m := New(testConfig())
	tn, err := m.CreateTenant("acme", model.TierFree)
	require.NoError(t, err)

	require.NoError(t, m.AdmitAgentCreation(tn.TenantID))
	require.NoError(t, m.AdmitAgentCreation(tn.TenantID))

	err = m.AdmitAgentCreation(tn.TenantID)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindQuotaExceeded))
}

func TestAdmitAgentCreation_UnlimitedTierNeverRejects(t *testing.T) {
	m := New(testConfig())
	tn, err := m.CreateTenant("bigco", model.TierEnterprise)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, m.AdmitAgentCreation(tn.TenantID))
	}
}

func TestAdmitExecution_RejectsSuspendedTenant(t *testing.T) {
	m := New(testConfig())
	tn, err := m.CreateTenant("acme", model.TierStarter)
	require.NoError(t, err)
	require.NoError(t, m.Suspend(tn.TenantID))

	err = m.AdmitExecution(tn.TenantID)
	assert.True(t, apierr.Is(err, apierr.KindIllegalState))
}

func TestAdmitExecution_ReleaseFreesHeadroom(t *testing.T) {
	m := New(testConfig())
	tn, err := m.CreateTenant("acme", model.TierFree)
	require.NoError(t, err)

	require.NoError(t, m.AdmitExecution(tn.TenantID))
	err = m.AdmitExecution(tn.TenantID)
	assert.True(t, apierr.Is(err, apierr.KindQuotaExceeded))

	m.ReleaseExecution(tn.TenantID)
	assert.NoError(t, m.AdmitExecution(tn.TenantID))
}

func TestAdmitTokens_RejectsOverDailyLimit(t *testing.T) {
	m := New(testConfig())
	tn, err := m.CreateTenant("acme", model.TierFree)
	require.NoError(t, err)

	require.NoError(t, m.AdmitTokens(tn.TenantID, 40000))
	err = m.AdmitTokens(tn.TenantID, 20000)
	assert.True(t, apierr.Is(err, apierr.KindQuotaExceeded))
}

func TestCreateTenant_UnknownTierRejected(t *testing.T) {
	m := New(testConfig())
	_, err := m.CreateTenant("acme", model.Tier("nonexistent"))
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}
