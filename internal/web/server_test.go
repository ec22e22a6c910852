package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/referral"
	"membershipPortal/internal/subscription"
	"membershipPortal/internal/testutil"
	"membershipPortal/models"
	"membershipPortal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "web-test-secret"
	testPassword = "hunter22"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	agents *repository.AgentRepository
	member *models.Agent
	token  string
}

func newTestApp(t *testing.T, opts Options) *testApp {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, strings.ReplaceAll(t.Name(), "/", "_"))

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	member := testutil.SeedMember(t, d, "boss", hash)

	agents := repository.NewAgentRepository(d)
	txs := repository.NewTransactionRepository(d)
	opts.Secret = testSecret
	h, err := NewHandler(Deps{
		Agents:        agents,
		Wallets:       repository.NewWalletRepository(d),
		Clients:       repository.NewClientRepository(d),
		Resources:     repository.NewResourceRepository(d),
		Transactions:  txs,
		Allocator:     referral.NewAllocator(referral.DefaultCodeLength, referral.DefaultMaxAttempts, 0),
		Resolver:      referral.NewResolver(agents),
		Subscriptions: subscription.NewService(agents, txs),
	}, opts, zerolog.Nop())
	require.NoError(t, err)

	return &testApp{
		t:      t,
		router: h.Router(),
		agents: agents,
		member: member,
		token:  testutil.GenerateJWTHS256(t, testSecret, member.ID, member.UserName, auth.RoleMember),
	}
}

func (a *testApp) do(method, target, token string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "membership_session", Value: token})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(target string) *httptest.ResponseRecorder {
	return a.do(http.MethodGet, target, a.token, nil)
}

func (a *testApp) post(target string, form url.Values) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, target, a.token, form)
}

func (a *testApp) seedAgent(name, referrerID string) *models.Agent {
	a.t.Helper()
	ag := &models.Agent{UserName: name, Email: name + "@example.com", FirstName: name}
	if referrerID != "" {
		ag.ReferrerID = &referrerID
	}
	require.NoError(a.t, a.agents.Create(context.Background(), ag))
	return ag
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, Options{})
	w := app.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestLogin(t *testing.T) {
	app := newTestApp(t, Options{})

	w := app.do(http.MethodPost, "/member/login", "", url.Values{
		"user_name":  {"BOSS"},
		"password":   {testPassword},
		"return_url": {"/member/agents"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/member/agents", w.Header().Get("Location"))

	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "membership_session" {
			session = ck
		}
	}
	require.NotNil(t, session, "session cookie")
	assert.True(t, session.HttpOnly)

	w = app.do(http.MethodGet, "/member", session.Value, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Log out boss")
}

func TestLogin_Rejected(t *testing.T) {
	app := newTestApp(t, Options{})

	for _, form := range []url.Values{
		{"user_name": {"boss"}, "password": {"wrong-password"}},
		{"user_name": {"nobody"}, "password": {testPassword}},
	} {
		w := app.do(http.MethodPost, "/member/login", "", form)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid login attempt.")
		assert.Empty(t, w.Result().Cookies())
	}

	w := app.do(http.MethodPost, "/member/login", "", url.Values{"user_name": {"boss"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Password is required.")
}

func TestLogin_OffSiteReturnURLIgnored(t *testing.T) {
	app := newTestApp(t, Options{})
	w := app.do(http.MethodPost, "/member/login", "", url.Values{
		"user_name":  {"boss"},
		"password":   {testPassword},
		"return_url": {"//evil.example.com/"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/member", w.Header().Get("Location"))
}

func TestLogin_RateLimited(t *testing.T) {
	app := newTestApp(t, Options{Limiter: auth.NewLoginLimiter(1, 1)})
	form := url.Values{"user_name": {"boss"}, "password": {"wrong-password"}}

	assert.Equal(t, http.StatusOK, app.do(http.MethodPost, "/member/login", "", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, app.do(http.MethodPost, "/member/login", "", form).Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	app := newTestApp(t, Options{})
	w := app.post("/member/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/member/login", w.Header().Get("Location"))
	require.NotEmpty(t, w.Result().Cookies())
	assert.Less(t, w.Result().Cookies()[0].MaxAge, 0)
}

func TestMemberAccessPolicy(t *testing.T) {
	app := newTestApp(t, Options{})

	w := app.do(http.MethodGet, "/member/agents", "", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/member/login?return_url=%2Fmember%2Fagents", w.Header().Get("Location"))

	agent := app.seedAgent("plain", "")
	agentTok := testutil.GenerateJWTHS256(t, testSecret, agent.ID, agent.UserName, auth.RoleAgent)
	w = app.do(http.MethodGet, "/member/agents", agentTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	spoofed := testutil.GenerateJWTHS256(t, testSecret, agent.ID, agent.UserName, auth.RoleMember)
	w = app.do(http.MethodGet, "/member/agents", spoofed, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodGet, "/member/agents", "not-a-jwt", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestDashboard(t *testing.T) {
	app := newTestApp(t, Options{})
	app.seedAgent("a1", "")
	app.seedAgent("a2", "")

	w := app.get("/member")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<dt>Agents</dt><dd>2</dd>")
	assert.Contains(t, w.Body.String(), "<dt>Members</dt><dd>1</dd>")
}

func agentValues(name string) url.Values {
	return url.Values{
		"user_name":        {name},
		"email":            {name + "@example.com"},
		"first_name":       {"First"},
		"last_name":        {"Last"},
		"agent_type":       {"VIP"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	}
}

func TestAddAgent(t *testing.T) {
	app := newTestApp(t, Options{})
	ref := app.seedAgent("sponsor", "")

	form := agentValues("newbie")
	form.Set("referrer_id", ref.ID)
	w := app.post("/member/agents/add", form)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/member/agents", w.Header().Get("Location"))

	a, err := app.agents.GetByUsername(context.Background(), "newbie")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.UserTypeAgent, a.UserType)
	assert.Equal(t, models.AgentTypeVIP, a.AgentType)
	require.NotNil(t, a.ReferrerID)
	assert.Equal(t, ref.ID, *a.ReferrerID)
	require.NotNil(t, a.ReferralCode)
	assert.Len(t, *a.ReferralCode, referral.DefaultCodeLength)
	assert.NoError(t, auth.CheckPassword(a.PasswordHash, "secret1"))

	w = app.get("/member/agents/" + a.ID + "/wallet")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Balance: 0.00")
}

func TestAddAgent_FormErrors(t *testing.T) {
	app := newTestApp(t, Options{})
	app.seedAgent("taken", "")

	form := agentValues("someone")
	form.Set("confirm_password", "different")
	w := app.post("/member/agents/add", form)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Confirm password does not match password.")

	form = agentValues("someone")
	form.Del("email")
	form.Set("password", "abc")
	form.Set("confirm_password", "abc")
	w = app.post("/member/agents/add", form)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Email is required.")
	assert.Contains(t, w.Body.String(), "Password must be at least 6 characters long.")

	w = app.post("/member/agents/add", agentValues("TAKEN"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "is already taken.")

	form = agentValues("orphan")
	form.Set("referrer_id", "ghost")
	w = app.post("/member/agents/add", form)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Agent with id: ghost")

	n, err := app.agents.Count(context.Background(), models.UserTypeAgent)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEditAgent(t *testing.T) {
	app := newTestApp(t, Options{})
	a := app.seedAgent("editme", "")
	app.seedAgent("other", "")

	w := app.get("/member/agents/" + a.ID + "/edit")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="editme"`)

	form := url.Values{
		"user_name":    {"edited"},
		"first_name":   {"Ed"},
		"last_name":    {"Ited"},
		"phone_number": {"555-0100"},
		"email":        {"ed@example.com"},
	}
	w = app.post("/member/agents/"+a.ID+"/edit", form)
	require.Equal(t, http.StatusSeeOther, w.Code)

	got, err := app.agents.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.UserName)
	require.NotNil(t, got.PhoneNumber)
	assert.Equal(t, "555-0100", *got.PhoneNumber)

	form.Set("user_name", "other")
	w = app.post("/member/agents/"+a.ID+"/edit", form)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "is already taken.")

	assert.Equal(t, http.StatusNotFound, app.get("/member/agents/ghost/edit").Code)
}

func TestChangeReferrer(t *testing.T) {
	app := newTestApp(t, Options{})
	root := app.seedAgent("root", "")
	child := app.seedAgent("child", root.ID)
	loner := app.seedAgent("loner", "")

	w := app.post("/member/agents/"+loner.ID+"/referrer", url.Values{"referrer_id": {"ghost"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User with the id: ghost was not found.")

	w = app.post("/member/agents/"+root.ID+"/referrer", url.Values{"referrer_id": {child.ID}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "the referral chain would loop")

	w = app.post("/member/agents/"+loner.ID+"/referrer", url.Values{"referrer_id": {""}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	got, err := app.agents.GetByID(context.Background(), loner.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ReferrerID, "empty choice leaves referrer unchanged")

	w = app.post("/member/agents/"+loner.ID+"/referrer", url.Values{"referrer_id": {child.ID}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/member/agents/"+loner.ID+"/referrer?saved=1", w.Header().Get("Location"))
	got, err = app.agents.GetByID(context.Background(), loner.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReferrerID)
	assert.Equal(t, child.ID, *got.ReferrerID)

	w = app.get("/member/agents/" + loner.ID + "/referrer")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="`+child.ID+`" selected`)
	assert.NotContains(t, body, `value="`+loner.ID+`"`, "an agent cannot pick itself")
}

func TestDownlinePage(t *testing.T) {
	app := newTestApp(t, Options{})
	r := app.seedAgent("rootagent", "")
	a := app.seedAgent("levelone", r.ID)
	b := app.seedAgent("leveltwo", a.ID)
	c := app.seedAgent("levelthree", b.ID)
	app.seedAgent("levelfour", c.ID)

	w := app.get("/member/agents/" + r.ID + "/downline")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "levelone")
	assert.Contains(t, body, "leveltwo")
	assert.Contains(t, body, "levelthree")
	assert.NotContains(t, body, "levelfour")

	w = app.get("/member/downline?id=" + r.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.get("/member/downline?id=")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.get("/member/agents/ghost/downline")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "agent with id: ghost")
}

func TestRecordSubscription(t *testing.T) {
	app := newTestApp(t, Options{})
	a := app.seedAgent("payer", "")

	w := app.post("/member/agents/"+a.ID+"/subscriptions", url.Values{
		"price":      {"abc"},
		"months":     {"1"},
		"payer_name": {"Pat"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Price is not a valid amount.")

	w = app.post("/member/agents/"+a.ID+"/subscriptions", url.Values{"price": {"0"}, "months": {"1"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "price must be between")

	w = app.post("/member/agents/"+a.ID+"/subscriptions", url.Values{
		"price":      {"49.90"},
		"months":     {"3"},
		"payer_name": {"Pat Payer"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	got, err := app.agents.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, got.Subscribed)

	w = app.get("/member/agents/" + a.ID + "/wallet")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "49.90")
	assert.Contains(t, w.Body.String(), "Pat Payer")
}

func TestClients(t *testing.T) {
	app := newTestApp(t, Options{})
	ref := app.seedAgent("clientref", "")

	w := app.post("/member/clients/add", url.Values{
		"first_name":  {"Cora"},
		"last_name":   {"Client"},
		"zip_code":    {"1234567"},
		"referrer_id": {ref.ID},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Zip code must be at most 6 characters long.")

	w = app.post("/member/clients/add", url.Values{
		"first_name":  {"Cora"},
		"last_name":   {"Client"},
		"zip_code":    {"12345"},
		"referrer_id": {ref.ID},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = app.post("/member/clients/add", url.Values{"first_name": {"Ned"}, "last_name": {"Noref"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = app.get("/member/clients?referrer_id=" + ref.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cora Client")
	assert.NotContains(t, w.Body.String(), "Ned Noref")

	w = app.post("/member/clients/add", url.Values{"first_name": {"X"}, "last_name": {"Y"}, "referrer_id": {"ghost"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResources(t *testing.T) {
	app := newTestApp(t, Options{})

	assert.Equal(t, http.StatusBadRequest, app.get("/member/resources/abc").Code)
	assert.Equal(t, http.StatusNotFound, app.get("/member/resources/999").Code)

	w := app.post("/member/resources/add", url.Values{"title": {"Guide"}, "url": {"not a url"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "URL is not a valid URL.")

	w = app.post("/member/resources/add", url.Values{
		"title":       {"Guide"},
		"description": {"How to start"},
		"url":         {"https://example.com/guide.pdf"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/member/resources/"), loc)

	w = app.get(loc)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "How to start")

	w = app.get("/member/resources")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Guide")

	w = app.post(loc+"/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/member/resources", w.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, app.get(loc).Code)
	assert.Equal(t, http.StatusNotFound, app.post(loc+"/delete", url.Values{}).Code)
	assert.Equal(t, http.StatusBadRequest, app.post("/member/resources/x/delete", url.Values{}).Code)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, Options{})
	w := app.get("/member/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found.")
}

func TestSafeReturnURL(t *testing.T) {
	cases := map[string]string{
		"":                   "/member",
		"/member/agents":     "/member/agents",
		"https://evil.test/": "/member",
		"//evil.test/":       "/member",
		`/\evil.test`:        "/member",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeReturnURL(in), in)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(referral.ErrInvalidInput))
	assert.Equal(t, http.StatusNotFound, statusFor(referral.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, statusFor(subscription.ErrAgentNotFound))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestAddAgent_LongPasswordCanLogIn(t *testing.T) {
	app := newTestApp(t, Options{})
	long := strings.Repeat("p", 80)

	form := agentValues("longpass")
	form.Set("password", long)
	form.Set("confirm_password", long)
	w := app.post("/member/agents/add", form)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	a, err := app.agents.GetByUsername(context.Background(), "longpass")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NoError(t, auth.CheckPassword(a.PasswordHash, long))

	w = app.do(http.MethodPost, "/member/login", "", url.Values{"user_name": {"longpass"}, "password": {long}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}
