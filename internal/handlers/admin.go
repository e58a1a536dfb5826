package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

// AdminHandler is the rule/protocol/flag management surface. The pipeline
// only ever reads what this writes.
type AdminHandler struct {
	log       *logger.Logger
	rules     repos.RuleRepo
	protocols repos.ProtocolRepo
	flags     services.FlagService
}

func NewAdminHandler(baseLog *logger.Logger, rules repos.RuleRepo, protocols repos.ProtocolRepo, flags services.FlagService) *AdminHandler {
	return &AdminHandler{
		log:       baseLog.With("handler", "AdminHandler"),
		rules:     rules,
		protocols: protocols,
		flags:     flags,
	}
}

type ruleBody struct {
	Name       string                `json:"name"`
	Enabled    *bool                 `json:"enabled,omitempty"`
	Priority   int                   `json:"priority"`
	Conditions []types.RuleCondition `json:"conditions"`
	Actions    []types.RuleAction    `json:"actions"`
}

func (b *ruleBody) validate() error {
	if b.Name == "" {
		return fmt.Errorf("name is required")
	}
	for _, cond := range b.Conditions {
		if !types.ValidConditionOperator(cond.Operator) {
			return fmt.Errorf("unknown operator %q", cond.Operator)
		}
		if cond.Metric == "" {
			return fmt.Errorf("condition metric is required")
		}
	}
	for _, action := range b.Actions {
		if action.Type != types.ActionAddProtocol {
			return fmt.Errorf("unknown action type %q", action.Type)
		}
	}
	return nil
}

func (h *AdminHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context(), nil)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"rules": rules})
}

func (h *AdminHandler) CreateRule(c *gin.Context) {
	var body ruleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := body.validate(); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	conditions, err := types.EncodeConditions(body.Conditions)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	actions, err := types.EncodeActions(body.Actions)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}
	rule := &types.Rule{
		ID:         uuid.New(),
		Name:       body.Name,
		Enabled:    enabled,
		Priority:   body.Priority,
		Conditions: conditions,
		Actions:    actions,
	}
	created, err := h.rules.Create(c.Request.Context(), nil, rule)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *AdminHandler) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid rule id"))
		return
	}
	rule, err := h.rules.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if rule == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("rule not found"))
		return
	}

	var body ruleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := body.validate(); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	conditions, err := types.EncodeConditions(body.Conditions)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	actions, err := types.EncodeActions(body.Actions)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	rule.Name = body.Name
	rule.Priority = body.Priority
	rule.Conditions = conditions
	rule.Actions = actions
	if body.Enabled != nil {
		rule.Enabled = *body.Enabled
	}
	if err := h.rules.Update(c.Request.Context(), nil, rule); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, rule)
}

func (h *AdminHandler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid rule id"))
		return
	}
	if err := h.rules.Delete(c.Request.Context(), nil, id); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (h *AdminHandler) ListProtocols(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	protocols, err := h.protocols.List(c.Request.Context(), nil, activeOnly)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"protocols": protocols})
}

func (h *AdminHandler) CreateProtocol(c *gin.Context) {
	var protocol types.Protocol
	if err := c.ShouldBindJSON(&protocol); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if protocol.Title == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("title is required"))
		return
	}
	protocol.ID = uuid.New()
	created, err := h.protocols.Create(c.Request.Context(), nil, &protocol)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *AdminHandler) UpdateProtocol(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid protocol id"))
		return
	}
	var protocol types.Protocol
	if err := c.ShouldBindJSON(&protocol); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	protocol.ID = id
	if err := h.protocols.Update(c.Request.Context(), nil, &protocol); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, protocol)
}

func (h *AdminHandler) ListFlags(c *gin.Context) {
	flags, err := h.flags.List(c.Request.Context(), nil)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"flags": flags})
}

func (h *AdminHandler) SetFlag(c *gin.Context) {
	var body struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if body.Name == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("name is required"))
		return
	}
	if err := h.flags.Set(c.Request.Context(), nil, body.Name, body.Enabled); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"name": body.Name, "enabled": body.Enabled})
}
