package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/logging"
	"membershipPortal/internal/referral"
	"membershipPortal/internal/subscription"
	"membershipPortal/models"
	"membershipPortal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) listAgents(c *gin.Context) {
	agents, err := h.Agents.List(c.Request.Context(), repository.ListAgentsParams{UserType: models.UserTypeAgent})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "agents_list", gin.H{"Title": "Agents", "Agents": agents})
}

// referrerChoices lists the agents that can be picked as referrer.
func (h *Handler) referrerChoices(ctx context.Context, excludeID string) ([]models.Agent, error) {
	return h.Agents.List(ctx, repository.ListAgentsParams{
		UserType:  models.UserTypeAgent,
		ExcludeID: excludeID,
		Limit:     1000,
	})
}

func (h *Handler) renderAddAgent(c *gin.Context, form addAgentForm, msgs []string) {
	refs, err := h.referrerChoices(c.Request.Context(), "")
	if err != nil {
		h.fail(c, err)
		return
	}
	form.Password, form.ConfirmPassword = "", ""
	h.render(c, http.StatusOK, "agent_add", gin.H{
		"Title":      "Add agent",
		"Form":       form,
		"Referrers":  refs,
		"AgentTypes": models.AgentTypes,
		"Errors":     msgs,
	})
}

func (h *Handler) addAgentPage(c *gin.Context) {
	h.renderAddAgent(c, addAgentForm{AgentType: string(models.AgentTypeBasic)}, nil)
}

func (h *Handler) addAgent(c *gin.Context) {
	var form addAgentForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderAddAgent(c, form, validationMessages(err))
		return
	}
	ctx := c.Request.Context()

	referrerID := optional(form.ReferrerID)
	if referrerID != nil {
		ref, err := h.Agents.GetByID(ctx, *referrerID)
		if err != nil {
			h.fail(c, err)
			return
		}
		if ref == nil {
			h.renderStatus(c, http.StatusNotFound, "Agent with id: "+*referrerID)
			return
		}
	}
	agentType, _ := models.ParseAgentType(form.AgentType)
	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		h.renderAddAgent(c, form, []string{"Password must be between 6 and 100 characters long."})
		return
	}

	var created *models.Agent
	code, err := h.Allocator.Assign(ctx, func(ctx context.Context, code string) error {
		a := &models.Agent{
			UserName:     strings.TrimSpace(form.UserName),
			Email:        strings.TrimSpace(form.Email),
			FirstName:    strings.TrimSpace(form.FirstName),
			LastName:     strings.TrimSpace(form.LastName),
			PhoneNumber:  optional(form.PhoneNumber),
			AgentType:    agentType,
			UserType:     models.UserTypeAgent,
			ReferrerID:   referrerID,
			ReferralCode: &code,
			PasswordHash: hash,
		}
		if err := h.Agents.Create(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		if repository.IsDuplicateOn(err, models.FieldNormalizedUserName) {
			h.renderAddAgent(c, form, []string{fmt.Sprintf("User name '%s' is already taken.", form.UserName)})
			return
		}
		h.fail(c, err)
		return
	}
	logging.FromContext(ctx).Info().Str("agent_id", created.ID).Str("referral_code", code).Msg("agent created")
	c.Redirect(http.StatusSeeOther, "/member/agents")
}

// loadAgent fetches the :id agent or renders 404.
func (h *Handler) loadAgent(c *gin.Context) (*models.Agent, bool) {
	id := c.Param("id")
	a, err := h.Agents.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if a == nil {
		h.renderStatus(c, http.StatusNotFound, "Agent with id: "+id)
		return nil, false
	}
	return a, true
}

func editFormFor(a *models.Agent) editAgentForm {
	f := editAgentForm{
		UserName:  a.UserName,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
	}
	if a.PhoneNumber != nil {
		f.PhoneNumber = *a.PhoneNumber
	}
	return f
}

func (h *Handler) editAgentPage(c *gin.Context) {
	a, ok := h.loadAgent(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "agent_edit", gin.H{
		"Title": "Edit agent",
		"Agent": a,
		"Form":  editFormFor(a),
		"Saved": c.Query("saved") != "",
	})
}

func (h *Handler) editAgent(c *gin.Context) {
	a, ok := h.loadAgent(c)
	if !ok {
		return
	}
	var form editAgentForm
	show := func(msgs ...string) {
		h.render(c, http.StatusOK, "agent_edit", gin.H{"Title": "Edit agent", "Agent": a, "Form": form, "Errors": msgs})
	}
	if err := c.ShouldBind(&form); err != nil {
		show(validationMessages(err)...)
		return
	}

	a.UserName = strings.TrimSpace(form.UserName)
	a.FirstName = strings.TrimSpace(form.FirstName)
	a.LastName = strings.TrimSpace(form.LastName)
	a.PhoneNumber = optional(form.PhoneNumber)
	a.Email = strings.TrimSpace(form.Email)
	if err := h.Agents.Update(c.Request.Context(), a); err != nil {
		if repository.IsDuplicateOn(err, models.FieldNormalizedUserName) {
			show(fmt.Sprintf("User name '%s' is already taken.", form.UserName))
			return
		}
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/member/agents/"+a.ID+"/edit?saved=1")
}

func (h *Handler) renderReferrer(c *gin.Context, a *models.Agent, msgs []string) {
	refs, err := h.referrerChoices(c.Request.Context(), a.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	current := ""
	if a.ReferrerID != nil {
		current = *a.ReferrerID
	}
	h.render(c, http.StatusOK, "agent_referrer", gin.H{
		"Title":           "Change referrer",
		"Agent":           a,
		"Form":            referrerForm{ReferrerID: current},
		"Referrers":       refs,
		"CurrentReferrer": current,
		"Saved":           c.Query("saved") != "",
		"Errors":          msgs,
	})
}

func (h *Handler) referrerPage(c *gin.Context) {
	a, ok := h.loadAgent(c)
	if !ok {
		return
	}
	h.renderReferrer(c, a, nil)
}

// changeReferrer sets the referrer of :id. An empty choice leaves it unchanged.
func (h *Handler) changeReferrer(c *gin.Context) {
	a, ok := h.loadAgent(c)
	if !ok {
		return
	}
	var form referrerForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderReferrer(c, a, validationMessages(err))
		return
	}
	refID := optional(form.ReferrerID)
	if refID == nil {
		c.Redirect(http.StatusSeeOther, "/member/agents/"+a.ID+"/referrer")
		return
	}
	ctx := c.Request.Context()

	ref, err := h.Agents.GetByID(ctx, *refID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if ref == nil {
		h.renderReferrer(c, a, []string{fmt.Sprintf("User with the id: %s was not found.", *refID)})
		return
	}
	cycle, err := referral.WouldCycle(ctx, h.Agents, a.ID, ref.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if cycle {
		h.renderReferrer(c, a, []string{fmt.Sprintf("%s cannot refer %s: the referral chain would loop.", ref.UserName, a.UserName)})
		return
	}
	if err := h.Agents.UpdateReferrer(ctx, a.ID, &ref.ID); err != nil {
		h.fail(c, err)
		return
	}
	logging.FromContext(ctx).Info().Str("agent_id", a.ID).Str("referrer_id", ref.ID).Msg("referrer changed")
	c.Redirect(http.StatusSeeOther, "/member/agents/"+a.ID+"/referrer?saved=1")
}

// downline serves both /agents/:id/downline and /downline?id=.
func (h *Handler) downline(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = c.Query("id")
	}
	d, err := h.Resolver.Resolve(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "agent_downline", gin.H{"Title": "Downline", "Downline": d})
}

func (h *Handler) renderWallet(c *gin.Context, code int, a *models.Agent, form subscriptionForm, msgs []string) {
	ctx := c.Request.Context()
	w, err := h.Wallets.GetByAgentID(ctx, a.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Transactions.ListByAgent(ctx, a.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, code, "agent_wallet", gin.H{
		"Title":        "Wallet",
		"Agent":        a,
		"Wallet":       w,
		"Transactions": txs,
		"Form":         form,
		"Errors":       msgs,
	})
}

func (h *Handler) wallet(c *gin.Context) {
	a, ok := h.loadAgent(c)
	if !ok {
		return
	}
	h.renderWallet(c, http.StatusOK, a, subscriptionForm{Months: 1}, nil)
}

func (h *Handler) recordSubscription(c *gin.Context) {
	a, ok := h.loadAgent(c)
	if !ok {
		return
	}
	var form subscriptionForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderWallet(c, http.StatusOK, a, form, validationMessages(err))
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(form.Price))
	if err != nil {
		h.renderWallet(c, http.StatusOK, a, form, []string{"Price is not a valid amount."})
		return
	}
	_, err = h.Subscriptions.Record(c.Request.Context(), subscription.RecordInput{
		AgentID:    a.ID,
		Price:      price,
		Months:     form.Months,
		PayerName:  form.PayerName,
		PayerEmail: form.PayerEmail,
		PayerPhone: form.PayerPhone,
	})
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			h.renderWallet(c, http.StatusOK, a, form, []string{err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/member/agents/"+a.ID+"/wallet")
}
