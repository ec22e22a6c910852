package web

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"membershipPortal/models"
	"membershipPortal/repository"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listClients(c *gin.Context) {
	clients, err := h.Clients.List(c.Request.Context(), repository.ListClientsParams{
		ReferrerID: strings.TrimSpace(c.Query("referrer_id")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "clients_list", gin.H{"Title": "Clients", "Clients": clients})
}

func (h *Handler) renderAddClient(c *gin.Context, form clientForm, msgs []string) {
	refs, err := h.referrerChoices(c.Request.Context(), "")
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "client_add", gin.H{
		"Title":     "Add client",
		"Form":      form,
		"Referrers": refs,
		"Errors":    msgs,
	})
}

func (h *Handler) addClientPage(c *gin.Context) {
	h.renderAddClient(c, clientForm{}, nil)
}

func (h *Handler) addClient(c *gin.Context) {
	var form clientForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderAddClient(c, form, validationMessages(err))
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
	cl := &models.Client{
		FirstName:   strings.TrimSpace(form.FirstName),
		LastName:    strings.TrimSpace(form.LastName),
		Email:       strings.TrimSpace(form.Email),
		PhoneNumber: strings.TrimSpace(form.PhoneNumber),
		Company:     strings.TrimSpace(form.Company),
		Address:     strings.TrimSpace(form.Address),
		City:        strings.TrimSpace(form.City),
		State:       strings.TrimSpace(form.State),
		ZipCode:     strings.TrimSpace(form.ZipCode),
		ReferrerID:  referrerID,
	}
	if err := h.Clients.Create(ctx, cl); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/member/clients")
}

func (h *Handler) listResources(c *gin.Context) {
	res, err := h.Resources.List(c.Request.Context(), 0, 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "resources_list", gin.H{"Title": "Resources", "Resources": res})
}

func (h *Handler) addResourcePage(c *gin.Context) {
	h.render(c, http.StatusOK, "resource_add", gin.H{"Title": "Add resource", "Form": resourceForm{}})
}

func (h *Handler) addResource(c *gin.Context) {
	var form resourceForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusOK, "resource_add", gin.H{"Title": "Add resource", "Form": form, "Errors": validationMessages(err)})
		return
	}
	r := &models.Resource{
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		URL:         strings.TrimSpace(form.URL),
	}
	if err := h.Resources.Create(c.Request.Context(), r); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/member/resources/"+strconv.FormatInt(r.ID, 10))
}

// resourceID parses :id, rendering 400 when it is not a number.
func (h *Handler) resourceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.renderStatus(c, http.StatusBadRequest, "Resource id must be a number.")
		return 0, false
	}
	return id, true
}

func (h *Handler) viewResource(c *gin.Context) {
	id, ok := h.resourceID(c)
	if !ok {
		return
	}
	r, err := h.Resources.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if r == nil {
		h.renderStatus(c, http.StatusNotFound, "Resource with id: "+c.Param("id"))
		return
	}
	h.render(c, http.StatusOK, "resource_view", gin.H{"Title": r.Title, "Resource": r})
}

func (h *Handler) deleteResource(c *gin.Context) {
	id, ok := h.resourceID(c)
	if !ok {
		return
	}
	if err := h.Resources.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.renderStatus(c, http.StatusNotFound, "Resource with id: "+c.Param("id"))
			return
		}
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/member/resources")
}
