package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/http/handlers"
	"roleplay_bot/internal/http/middleware"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/plugin/money"
	"roleplay_bot/internal/repository/memstore"
	"roleplay_bot/internal/service"
)

const (
	botToken       = "123:token"
	server   int64 = 77
	admin    int64 = 1
	player   int64 = 2
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type members map[int64]bool

func (m members) Member(_ context.Context, _, userID int64) (*service.Member, error) {
	return &service.Member{UserID: userID, IsAdmin: m[userID]}, nil
}

type testAPI struct {
	router     *gin.Engine
	jwt        *service.JWT
	characters *service.CharacterService
	economy    *service.EconomyService
}

func newTestAPI(t *testing.T, limiter *middleware.RateLimiter) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	audit := service.NewAuditService(store.Audit)
	characters := service.NewCharacterService(store.Characters, store.Users, nil, audit, domain.LanguageEnglish)
	economy := service.NewEconomyService(store.Balances, audit, nil, nil)

	registry, err := plugin.NewRegistry(store.Servers, nil, money.New(economy, characters))
	require.NoError(t, err)
	servers := service.NewServerService(registry, members{admin: true}, audit, nil)
	profiles := service.NewProfileService(characters, registry, plugin.NewDispatcher(nil, time.Second))
	jwt := service.NewJWT("secret", time.Hour)

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("always", func() error { return nil })

	r := gin.New()
	RegisterRoutes(r, Deps{
		Handler: &handlers.Handler{
			Characters: characters,
			Profiles:   profiles,
			Economy:    economy,
			Servers:    servers,
			JWT:        jwt,
			BotToken:   botToken,
			Now:        func() time.Time { return fixedNow },
		},
		JWT:     jwt,
		Limiter: limiter,
		Health:  health,
	})

	return &testAPI{router: r, jwt: jwt, characters: characters, economy: economy}
}

func (a *testAPI) do(t *testing.T, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := a.jwt.Generate(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (a *testAPI) character(t *testing.T, owner int64, name string) *domain.Character {
	t.Helper()
	c, err := a.characters.Create(context.Background(), owner, name, "")
	require.NoError(t, err)
	return c
}

func TestAuthTelegram(t *testing.T) {
	a := newTestAPI(t, nil)

	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(fixedNow.Add(-time.Minute).Unix(), 10))
	values.Set("user", `{"id":42,"username":"aria","first_name":"Aria"}`)
	values.Set("hash", service.SignInitData(values, botToken))

	w := a.do(t, http.MethodPost, "/api/auth/telegram", 0, map[string]string{"init_data": values.Encode()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode(t, w)
	id, err := a.jwt.Parse(out["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "aria", out["username"])

	values.Set("user", `{"id":43}`)
	w = a.do(t, http.MethodPost, "/api/auth/telegram", 0, map[string]string{"init_data": values.Encode()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(t, http.MethodGet, "/api/me/characters", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me/characters", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCharactersFlow(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(t, http.MethodPost, "/api/characters", player, map[string]string{"name": "Aria"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(t, http.MethodPost, "/api/characters", player, map[string]string{"name": "Bram", "image_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(t, http.MethodPost, "/api/characters", player, map[string]string{"name": "Bram"})
	require.Equal(t, http.StatusCreated, w.Code)

	bram := decode(t, w)["character"].(map[string]any)
	bramID := int64(bram["id"].(float64))

	w = a.do(t, http.MethodPost, "/api/characters/"+strconv.FormatInt(bramID, 10)+"/choose", player, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/me/characters", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Len(t, out["characters"], 2)
	assert.Equal(t, float64(bramID), out["current_id"])

	w = a.do(t, http.MethodDelete, "/api/characters/"+strconv.FormatInt(bramID, 10), admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodDelete, "/api/characters/9999", player, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearCurrentCharacter(t *testing.T) {
	a := newTestAPI(t, nil)
	aria := a.character(t, player, "Aria")

	w := a.do(t, http.MethodDelete, "/api/me/current", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := decode(t, w)["character"].(map[string]any)
	assert.Equal(t, float64(aria.ID), cleared["id"])

	w = a.do(t, http.MethodGet, "/api/me/characters", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Nil(t, out["current_id"])
	assert.Len(t, out["characters"], 1, "character is kept")

	w = a.do(t, http.MethodDelete, "/api/me/current", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["character"])
}

func TestCharacterProfileFields(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(t, http.MethodPost, "/api/characters", player, map[string]any{
		"name":        "Aria",
		"title":       "The Brave",
		"embed_color": "#ff8800",
		"age":         27,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["character"].(map[string]any)
	assert.Equal(t, "The Brave", created["title"])
	assert.Equal(t, "#FF8800", created["embed_color"])
	assert.Equal(t, float64(27), created["age"])
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	w = a.do(t, http.MethodPost, "/api/characters", player, map[string]any{"name": "Bram", "embed_color": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPatch, "/api/characters/"+id, player, map[string]string{"backstory": "Born at sea."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Born at sea.", decode(t, w)["character"].(map[string]any)["backstory"])

	w = a.do(t, http.MethodPatch, "/api/characters/"+id, admin, map[string]string{"race": "Elf"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodPatch, "/api/characters/"+id, player, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/api/characters/"+id+"/profile", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The Brave")
	assert.Contains(t, w.Body.String(), "Born at sea.")
	assert.NotNil(t, decode(t, w)["details"])
}

func TestProfileIncludesPluginFields(t *testing.T) {
	a := newTestAPI(t, nil)
	aria := a.character(t, player, "Aria")
	_, err := a.economy.Add(context.Background(), admin, aria.ID, server, 30)
	require.NoError(t, err)

	path := "/api/characters/" + strconv.FormatInt(aria.ID, 10) + "/profile?server_id=" + strconv.FormatInt(server, 10)

	w := a.do(t, http.MethodGet, path, player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "💰 Money")

	w = a.do(t, http.MethodPost, "/api/servers/77/plugins/money/toggle", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["enabled"])

	w = a.do(t, http.MethodGet, path, player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "💰 Money")

	w = a.do(t, http.MethodGet, "/api/characters/9999/profile", player, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTogglePluginRules(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(t, http.MethodPost, "/api/servers/77/plugins/money/toggle", player, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/api/servers/77/plugins/nope/toggle", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/api/servers/77/plugins", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["plugins"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, false, list[0].(map[string]any)["enabled"])
}

func TestTransferAndBalance(t *testing.T) {
	a := newTestAPI(t, nil)
	aria := a.character(t, player, "Aria")
	bram := a.character(t, admin, "Bram")
	_, err := a.economy.Add(context.Background(), admin, aria.ID, server, 10)
	require.NoError(t, err)

	req := map[string]int64{"from_character_id": aria.ID, "to_character_id": bram.ID, "server_id": server, "amount": 4}

	// чужой персонаж
	w := a.do(t, http.MethodPost, "/api/transfer", admin, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPost, "/api/transfer", player, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req["amount"] = 100
	w = a.do(t, http.MethodPost, "/api/transfer", player, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	req["amount"] = -1
	w = a.do(t, http.MethodPost, "/api/transfer", player, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/api/balance?character_id="+strconv.FormatInt(bram.ID, 10)+"&server_id=77", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["balance"])

	w = a.do(t, http.MethodGet, "/api/balance?character_id=x", player, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTop(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(t, http.MethodGet, "/api/top", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["leaderboard"])

	a.character(t, player, "Aria")
	w = a.do(t, http.MethodGet, "/api/top?limit=5", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["leaderboard"], 1)

	w = a.do(t, http.MethodGet, "/api/top?limit=-1", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	a := newTestAPI(t, middleware.NewRateLimiter(nil, 2))

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/top", 0, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/top", 0, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, a.do(t, http.MethodGet, "/api/top", 0, nil).Code)
}

func TestRateLimitAuthorizedCountsPerUser(t *testing.T) {
	a := newTestAPI(t, middleware.NewRateLimiter(nil, 2))

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/me/characters", player, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/me/characters", player, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, a.do(t, http.MethodGet, "/api/me/characters", player, nil).Code)

	// IP-бакет не тронут запросами пользователя
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/top", 0, nil).Code)
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(t, http.MethodGet, "/live", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
