package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coreflow-dev/agentcore/pkg/agent"
	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/hitl"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/registry"
	"github.com/coreflow-dev/agentcore/pkg/resilience"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
	"github.com/coreflow-dev/agentcore/pkg/tenant"
)

// api holds the collaborators the HTTP/admin surface (spec §6) calls into.
// Grounded on cmd/tarsy/main.go's inline-router-with-closures style, split
// into a named receiver here because this surface has far more routes than
// the teacher's single health endpoint.
type api struct {
	cfg         *config.Config
	store       statestore.Store
	reg         *registry.Registry
	tenants     *tenant.Manager
	executor    *agent.Executor
	queue       *hitl.Queue
	hitlManager *hitl.Manager
	escalations *hitl.EscalationManager
	breakers    *resilience.Breakers
}

func (a *api) registerRoutes(r *gin.Engine) {
	r.GET("/health", a.handleHealth)

	r.GET("/blueprints", a.handleListBlueprints)

	r.GET("/tenants", a.handleListTenants)
	r.POST("/tenants", a.handleCreateTenant)
	r.POST("/tenants/:id/suspend", a.handleSuspendTenant)
	r.POST("/tenants/:id/resume", a.handleResumeTenant)
	r.DELETE("/tenants/:id", a.handleDeleteTenant)

	r.GET("/agents", a.handleListAgents)
	r.POST("/agents", a.handleCreateAgent)
	r.GET("/agents/:id", a.handleGetAgent)
	r.DELETE("/agents/:id", a.handleDeleteAgent)
	r.POST("/agents/:id/execute", a.handleExecuteAgent)
	r.POST("/agents/:id/cancel", a.handleCancelAgent)
	r.POST("/agents/:id/escalate", a.handleEscalateAgent)

	r.GET("/hitl/requests", a.handleListHITLRequests)
	r.POST("/hitl/requests/:id/assign", a.handleAssignHITLRequest)
	r.POST("/hitl/requests/:id/respond", a.handleRespondHITLRequest)
	r.POST("/hitl/requests/:id/cancel", a.handleCancelHITLRequest)

	r.GET("/circuits", a.handleListCircuits)
	r.POST("/circuits/:name/reset", a.handleResetCircuit)
}

func (a *api) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"blueprints": len(a.reg.ListBlueprints()),
		"tenants":    len(a.tenants.List()),
	})
}

func (a *api) handleListBlueprints(c *gin.Context) {
	c.JSON(http.StatusOK, a.reg.ListBlueprints())
}

// writeError maps an apierr.Kind onto an HTTP status and the user-visible
// envelope from spec §7: validation/illegal-state are 4xx client errors,
// quota is 429, not-found is 404, and transient/fatal are 5xx.
func writeError(c *gin.Context, err error) {
	envelope := apierr.ToEnvelope(err)
	status := http.StatusInternalServerError
	switch envelope.ErrorKind {
	case apierr.KindValidation:
		status = http.StatusBadRequest
	case apierr.KindNotFound:
		status = http.StatusNotFound
	case apierr.KindIllegalState:
		status = http.StatusConflict
	case apierr.KindQuotaExceeded:
		status = http.StatusTooManyRequests
	case apierr.KindTimeout:
		status = http.StatusGatewayTimeout
	case apierr.KindTransient:
		status = http.StatusBadGateway
	case apierr.KindFatal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, envelope)
}

type createTenantRequest struct {
	Name string     `json:"name" binding:"required"`
	Tier model.Tier `json:"tier" binding:"required"`
}

func (a *api) handleListTenants(c *gin.Context) {
	c.JSON(http.StatusOK, a.tenants.List())
}

func (a *api) handleCreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.Validation("tenant", "", err.Error()))
		return
	}
	t, err := a.tenants.CreateTenant(req.Name, req.Tier)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (a *api) handleSuspendTenant(c *gin.Context) {
	if err := a.tenants.Suspend(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) handleResumeTenant(c *gin.Context) {
	if err := a.tenants.Resume(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) handleDeleteTenant(c *gin.Context) {
	if err := a.tenants.DeleteTenant(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createAgentRequest struct {
	TenantID  string            `json:"tenant_id" binding:"required"`
	Blueprint string            `json:"blueprint" binding:"required"`
	Overlay   model.AgentConfig `json:"overlay"`
}

func (a *api) handleListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, a.reg.ListAgents(c.Query("tenant_id")))
}

func (a *api) handleCreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.Validation("agent", "", err.Error()))
		return
	}
	if err := a.tenants.AdmitAgentCreation(req.TenantID); err != nil {
		writeError(c, err)
		return
	}
	rec, err := a.reg.CreateAgent(req.TenantID, req.Blueprint, req.Overlay)
	if err != nil {
		a.tenants.ReleaseAgent(req.TenantID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (a *api) handleGetAgent(c *gin.Context) {
	rec, err := a.reg.GetAgent(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (a *api) handleDeleteAgent(c *gin.Context) {
	rec, err := a.reg.GetAgent(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := a.reg.RemoveAgent(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	a.tenants.ReleaseAgent(rec.TenantID)
	c.Status(http.StatusNoContent)
}

type executeAgentRequest struct {
	Input          map[string]any `json:"input"`
	TimeoutSeconds int            `json:"timeout_seconds"`
	Wait           bool           `json:"wait"`
}

func (a *api) handleExecuteAgent(c *gin.Context) {
	var req executeAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, apierr.Validation("agent", c.Param("id"), err.Error()))
		return
	}
	result, err := a.executor.Execute(c.Request.Context(), c.Param("id"), agent.ExecuteOptions{
		Input:          req.Input,
		TimeoutSeconds: req.TimeoutSeconds,
		Wait:           req.Wait,
	})
	if err != nil {
		if errors.Is(err, agent.ErrBusy) {
			c.JSON(http.StatusConflict, apierr.Envelope{ErrorKind: "busy", Message: "agent already executing", Retryable: true})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *api) handleCancelAgent(c *gin.Context) {
	if err := a.executor.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type escalateAgentRequest struct {
	TenantID      string         `json:"tenant_id" binding:"required"`
	ExecutionID   string         `json:"execution_id"`
	RunContext    map[string]any `json:"run_context"`
	ManualReason  string         `json:"manual_reason"`
	ManualChannel string         `json:"manual_channel"`
	ManualUrgency string         `json:"manual_urgency"`
}

// handleEscalateAgent evaluates the tenant's escalation policy against a
// caller-supplied run context and raises a matching HITL request (spec
// §4.4). Supplying manual_reason bypasses rule evaluation entirely and
// raises a request directly at PriorityHigh, per spec §4.4's "equivalent,
// but bypasses rule evaluation" manual path.
func (a *api) handleEscalateAgent(c *gin.Context) {
	var req escalateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.Validation("escalation", c.Param("id"), err.Error()))
		return
	}

	if req.ManualReason != "" {
		hitlReq := a.escalations.ManualEscalate(c.Request.Context(), c.Param("id"), req.TenantID, req.ExecutionID,
			model.PriorityHigh, req.ManualReason, req.ManualChannel, req.ManualUrgency)
		c.JSON(http.StatusCreated, hitlReq)
		return
	}

	hitlReq, rule, err := a.escalations.EvaluateAndEscalate(c.Request.Context(), c.Param("id"), req.TenantID, req.ExecutionID, req.RunContext)
	if err != nil {
		writeError(c, err)
		return
	}
	if hitlReq == nil {
		c.JSON(http.StatusOK, gin.H{"escalated": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"escalated": true, "rule": rule.Name, "request": hitlReq})
}

func (a *api) handleListHITLRequests(c *gin.Context) {
	filter := hitl.Filter{
		TenantID: c.Query("tenant_id"),
		Priority: model.Priority(c.Query("priority")),
		Type:     model.RequestType(c.Query("type")),
	}
	c.JSON(http.StatusOK, a.queue.GetPending(filter, 0))
}

type assignRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
}

func (a *api) handleAssignHITLRequest(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.Validation("hitl_request", c.Param("id"), err.Error()))
		return
	}
	if err := a.queue.Assign(c.Param("id"), req.ReviewerID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) handleRespondHITLRequest(c *gin.Context) {
	var resp model.HITLResponse
	if err := c.ShouldBindJSON(&resp); err != nil {
		writeError(c, apierr.Validation("hitl_request", c.Param("id"), err.Error()))
		return
	}
	req, err := a.hitlManager.Respond(c.Request.Context(), c.Param("id"), resp)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (a *api) handleCancelHITLRequest(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)
	if err := a.queue.Cancel(c.Param("id"), req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) handleListCircuits(c *gin.Context) {
	c.JSON(http.StatusOK, a.breakers.List())
}

func (a *api) handleResetCircuit(c *gin.Context) {
	if err := a.breakers.Reset(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
