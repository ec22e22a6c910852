package web

import (
	"errors"
	"net/http"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/logging"
	"membershipPortal/models"

	"github.com/gin-gonic/gin"
)

const invalidLogin = "Invalid login attempt."

func (h *Handler) loginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login", gin.H{
		"Title":     "Log in",
		"Form":      loginForm{},
		"ReturnURL": safeReturnURL(c.Query("return_url")),
	})
}

func (h *Handler) login(c *gin.Context) {
	var form loginForm
	bindErr := c.ShouldBind(&form)
	returnURL := safeReturnURL(form.ReturnURL)
	password := form.Password
	form.Password = ""
	show := func(code int, msgs ...string) {
		h.render(c, code, "login", gin.H{"Title": "Log in", "Form": form, "ReturnURL": returnURL, "Errors": msgs})
	}

	if !h.opts.Limiter.Allow(c.ClientIP()) {
		show(http.StatusTooManyRequests, "Too many login attempts. Try again in a minute.")
		return
	}
	if bindErr != nil {
		show(http.StatusOK, validationMessages(bindErr)...)
		return
	}

	ctx := c.Request.Context()
	u, err := h.Agents.GetByUsername(ctx, form.UserName)
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		show(http.StatusOK, invalidLogin)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			h.fail(c, err)
			return
		}
		logging.FromContext(ctx).Info().Str("user_name", form.UserName).Msg("failed login")
		show(http.StatusOK, invalidLogin)
		return
	}

	token, err := auth.Issue(h.opts.Secret, auth.Principal{
		AgentID:  u.ID,
		UserName: u.UserName,
		Role:     auth.RoleFor(u.UserType),
	}, h.opts.SessionTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, token, int(h.opts.SessionTTL.Seconds()), "/", "", h.opts.SecureCookie, true)
	logging.FromContext(ctx).Info().Str("agent_id", u.ID).Msg("login")
	c.Redirect(http.StatusSeeOther, returnURL)
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, "", -1, "/", "", h.opts.SecureCookie, true)
	c.Redirect(http.StatusSeeOther, "/member/login")
}

func (h *Handler) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	agents, err := h.Agents.Count(ctx, models.UserTypeAgent)
	if err != nil {
		h.fail(c, err)
		return
	}
	members, err := h.Agents.Count(ctx, models.UserTypeMember)
	if err != nil {
		h.fail(c, err)
		return
	}
	clients, err := h.Clients.Count(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	resources, err := h.Resources.Count(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard", gin.H{
		"Title":     "Dashboard",
		"Agents":    agents,
		"Members":   members,
		"Clients":   clients,
		"Resources": resources,
	})
}
