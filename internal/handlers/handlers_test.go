package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"casino-vault-backend/internal/config"
	"casino-vault-backend/internal/handlers"
	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	house = "house"
	alice = "alice"

	initialFunding = uint64(10_000_000_000)
	playerStake    = uint64(1_000_000_000)
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router      *gin.Engine
	engine      *services.CasinoEngine
	ledger      *services.MemoryLedger
	jwt         *services.JWTService
	fairness    *services.FairnessSource
	hub         *handlers.WebSocketHub
	leaderboard *services.LeaderboardService
	limiter     *services.RedisService
}

func newAPIFixture(t *testing.T, betsPerMinute int) *apiFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fairness, err := services.NewFairnessSource("api-test")
	require.NoError(t, err)

	f := &apiFixture{
		ledger:      services.NewMemoryLedger(),
		jwt:         services.NewJWTService(&config.Config{JWTSecret: "test-secret", JWTExpiresIn: time.Hour}),
		fairness:    fairness,
		hub:         handlers.NewWebSocketHub(),
		leaderboard: services.NewLeaderboardService(client, "test"),
		limiter:     services.NewRedisServiceWithClient(client, "test"),
	}
	f.engine = services.NewCasinoEngine(f.ledger, services.EngineOptions{
		ProgramID:      "test",
		PlayerBuffer:   models.DefaultPlayerBuffer,
		SessionDeposit: models.DefaultSessionDeposit,
		Broadcaster:    services.MultiBroadcaster{f.hub, f.leaderboard},
	})
	f.router = handlers.NewRouter(handlers.RouterDeps{
		Engine:        f.engine,
		Fairness:      f.fairness,
		JWT:           f.jwt,
		Hub:           f.hub,
		Leaderboard:   f.leaderboard,
		RateLimiter:   f.limiter,
		BetsPerMinute: betsPerMinute,
	})

	require.NoError(t, f.ledger.Credit(models.PlayerAccount(house), initialFunding))
	require.NoError(t, f.ledger.Credit(models.PlayerAccount(alice), playerStake))
	return f
}

func (f *apiFixture) token(t *testing.T, identity, role string) string {
	t.Helper()
	tok, err := f.jwt.GenerateToken(identity, role)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (f *apiFixture) initialize(t *testing.T) {
	t.Helper()
	w, body := f.do(t, http.MethodPost, "/api/admin/initialize", f.token(t, house, services.RoleOperator), gin.H{
		"min_bet":         100_000,
		"max_bet":         1_000_000_000,
		"initial_funding": initialFunding,
	})
	require.Equal(t, http.StatusCreated, w.Code, body)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, 0)

	w, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthentication(t *testing.T) {
	f := newAPIFixture(t, 0)

	w, _ := f.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w, body := f.do(t, http.MethodGet, "/api/me", f.token(t, alice, services.RolePlayer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alice, body["identity"])
	assert.Equal(t, services.RolePlayer, body["role"])
	wallet := body["wallet"].(map[string]interface{})
	assert.Equal(t, float64(playerStake), wallet["balance"])
	assert.Equal(t, "1 SOL", wallet["formatted"])
}

func TestAdminRoutesRequireOperator(t *testing.T) {
	f := newAPIFixture(t, 0)

	w, _ := f.do(t, http.MethodPost, "/api/admin/pause", f.token(t, alice, services.RolePlayer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// an operator token that is not the stored authority is still refused
	f.initialize(t)
	w, body := f.do(t, http.MethodPost, "/api/admin/pause", f.token(t, alice, services.RoleOperator), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(models.CodeUnauthorized), body["code"])

	w, _ = f.do(t, http.MethodPost, "/api/admin/pause", f.token(t, house, services.RoleOperator), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = f.do(t, http.MethodPost, "/api/games/bet", f.token(t, alice, services.RolePlayer), gin.H{
		"game_type": "coinflip", "choice": 0, "bet_amount": 1_000_000,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(models.CodeCasinoPaused), body["code"])
}

func TestGetCasino(t *testing.T) {
	f := newAPIFixture(t, 0)
	player := f.token(t, alice, services.RolePlayer)

	w, body := f.do(t, http.MethodGet, "/api/casino", player, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(models.CodeNotInitialized), body["code"])

	f.initialize(t)
	w, body = f.do(t, http.MethodGet, "/api/casino", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(initialFunding), body["vault_balance"])
	assert.Equal(t, "10 SOL", body["vault_formatted"])
	assert.Equal(t, true, body["solvent"])
	cfg := body["config"].(map[string]interface{})
	assert.Equal(t, house, cfg["authority"])
}

func TestBetFulfilClaimFlow(t *testing.T) {
	f := newAPIFixture(t, 0)
	f.initialize(t)
	player := f.token(t, alice, services.RolePlayer)

	w, body := f.do(t, http.MethodPost, "/api/games/bet", player, gin.H{
		"game_type": "coinflip", "choice": 0, "bet_amount": 1_000_000,
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	session := body["session"].(map[string]interface{})
	assert.Equal(t, float64(0), session["game_id"])
	assert.Equal(t, "pending", session["status"])

	w, body = f.do(t, http.MethodGet, "/api/games/sessions?status=pending", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])

	// the player resolves their own win and is paid in the same step
	w, body = f.do(t, http.MethodPost, "/api/games/fulfill", player, gin.H{
		"player": alice, "game_id": 0, "random_value": strings.Repeat("00", 32),
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	result := body["session"].(map[string]interface{})["result"].(map[string]interface{})
	assert.Equal(t, true, result["is_win"])
	assert.Equal(t, float64(1_960_000), result["payout"])
	assert.Equal(t, true, result["payout_claimed"])

	w, body = f.do(t, http.MethodPost, "/api/games/claim", player, gin.H{"game_id": 0})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(models.CodeNothingToClaim), body["code"])

	w, body = f.do(t, http.MethodGet, "/api/games/sessions/alice/0", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["unclaimed"])

	w, body = f.do(t, http.MethodGet, "/api/leaderboard", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := body["leaderboard"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, alice, entry["player"])
	assert.Equal(t, float64(960_000), entry["net_profit"])
}

func TestOperatorFulfilDefersPayout(t *testing.T) {
	f := newAPIFixture(t, 0)
	f.initialize(t)
	player := f.token(t, alice, services.RolePlayer)
	operator := f.token(t, house, services.RoleOperator)

	w, _ := f.do(t, http.MethodPost, "/api/games/bet", player, gin.H{
		"game_type": "coinflip", "choice": 1, "bet_amount": 1_000_000,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := f.do(t, http.MethodPost, "/api/games/fulfill", operator, gin.H{
		"player": alice, "game_id": 0, "random_value": strings.Repeat("ff", 32),
	})
	require.Equal(t, http.StatusOK, w.Code, body)

	w, body = f.do(t, http.MethodGet, "/api/games/sessions/alice/0", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["unclaimed"])

	w, body = f.do(t, http.MethodPost, "/api/games/claim", player, gin.H{"game_id": 0})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, float64(1_960_000), body["payout"])
}

func TestBetValidation(t *testing.T) {
	f := newAPIFixture(t, 0)
	f.initialize(t)
	player := f.token(t, alice, services.RolePlayer)

	tests := []struct {
		name   string
		body   gin.H
		status int
		code   models.ErrorCode
	}{
		{"unknown game", gin.H{"game_type": "roulette", "choice": 0, "bet_amount": 1_000_000}, http.StatusBadRequest, ""},
		{"missing amount", gin.H{"game_type": "dice", "choice": 7}, http.StatusBadRequest, models.CodeInvalidBetAmount},
		{"zero amount", gin.H{"game_type": "dice", "choice": 7, "bet_amount": 0}, http.StatusBadRequest, models.CodeInvalidBetAmount},
		{"below minimum", gin.H{"game_type": "dice", "choice": 7, "bet_amount": 10}, http.StatusBadRequest, models.CodeInvalidBetAmount},
		{"bad dice choice", gin.H{"game_type": "dice", "choice": 13, "bet_amount": 1_000_000}, http.StatusBadRequest, models.CodeInvalidChoice},
		{"cannot afford", gin.H{"game_type": "dice", "choice": 7, "bet_amount": 1_000_000_000}, http.StatusPaymentRequired, models.CodeInsufficientPlayerFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := f.do(t, http.MethodPost, "/api/games/bet", player, tt.body)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, string(tt.code), body["code"])
			}
		})
	}

	w, _ := f.do(t, http.MethodGet, "/api/games/sessions/alice/abc", player, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := f.do(t, http.MethodGet, "/api/games/sessions/alice/7", player, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(models.CodeSessionNotFound), body["code"])

	w, _ = f.do(t, http.MethodPost, "/api/games/fulfill", player, gin.H{"player": alice, "game_id": 0, "random_value": "abcd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminTreasuryEndpoints(t *testing.T) {
	f := newAPIFixture(t, 0)
	f.initialize(t)
	operator := f.token(t, house, services.RoleOperator)

	w, body := f.do(t, http.MethodPost, "/api/admin/skim", operator, gin.H{"amount": 1_000_000_000, "min_vault_reserve": 1_000_000_000})
	require.Equal(t, http.StatusOK, w.Code, body)
	skim := body["skim"].(map[string]interface{})
	assert.Equal(t, float64(initialFunding-1_000_000_000), skim["vault_balance_after"])

	w, body = f.do(t, http.MethodPost, "/api/admin/skim", operator, gin.H{"amount": initialFunding, "min_vault_reserve": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(models.CodeInsufficientVaultLiquidity), body["code"])

	w, body = f.do(t, http.MethodPost, "/api/admin/skim", operator, gin.H{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(models.CodeInvalidSkimAmount), body["code"])

	w, body = f.do(t, http.MethodPost, "/api/admin/fund", operator, gin.H{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(models.CodeInvalidAmount), body["code"])

	require.NoError(t, f.ledger.Credit(models.PlayerAccount(house), 500))
	w, body = f.do(t, http.MethodPost, "/api/admin/fund", operator, gin.H{"amount": 500})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, float64(initialFunding-1_000_000_000+500), body["vault_balance"])

	w, _ = f.do(t, http.MethodPost, "/api/admin/initialize", operator, gin.H{
		"min_bet": 1, "max_bet": 2, "initial_funding": 10,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInitializeRejectsZeroLimits(t *testing.T) {
	f := newAPIFixture(t, 0)
	operator := f.token(t, house, services.RoleOperator)

	w, body := f.do(t, http.MethodPost, "/api/admin/initialize", operator, gin.H{
		"min_bet": 0, "max_bet": 0, "initial_funding": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(models.CodeConfigInvalid), body["code"])

	w, body = f.do(t, http.MethodGet, "/api/casino", operator, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(models.CodeNotInitialized), body["code"])
}

func TestFairnessEndpoints(t *testing.T) {
	f := newAPIFixture(t, 0)
	player := f.token(t, alice, services.RolePlayer)
	operator := f.token(t, house, services.RoleOperator)

	w, body := f.do(t, http.MethodGet, "/api/games/fairness", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	committed := body["server_seed_hash"].(string)
	assert.Equal(t, "api-test", body["client_seed"])

	draw := f.fairness.Draw(3)

	w, body = f.do(t, http.MethodPost, "/api/admin/fairness/rotate", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	revealed := body["revealed_server_seed"].(string)
	assert.Equal(t, committed, services.HashServerSeed(revealed))
	assert.NotEqual(t, committed, body["server_seed_hash"])

	w, body = f.do(t, http.MethodPost, "/api/games/verify", player, gin.H{
		"server_seed": revealed, "client_seed": "api-test", "nonce": 3, "game_type": "slots", "choice": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	expected, err := services.ResolveOutcome(models.GameTypeSlots, 0, draw)
	require.NoError(t, err)
	verification := body["verification"].(map[string]interface{})
	assert.Equal(t, float64(expected.Value), verification["outcome"])
	assert.Equal(t, committed, verification["server_seed_hash"])
}

func TestHistoryDisabledWithoutAuditStore(t *testing.T) {
	f := newAPIFixture(t, 0)

	w, _ := f.do(t, http.MethodGet, "/api/games/history", f.token(t, alice, services.RolePlayer), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRateLimitOnBets(t *testing.T) {
	f := newAPIFixture(t, 1)
	f.initialize(t)
	player := f.token(t, alice, services.RolePlayer)
	bet := gin.H{"game_type": "slots", "choice": 0, "bet_amount": 1_000_000}

	w, _ := f.do(t, http.MethodPost, "/api/games/bet", player, bet)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := f.do(t, http.MethodPost, "/api/games/bet", player, bet)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, float64(60), body["retry_after"])

	// other endpoints are not counted against the bet limit
	w, _ = f.do(t, http.MethodGet, "/api/games/sessions", player, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocketPushesPlayerEvents(t *testing.T) {
	f := newAPIFixture(t, 0)
	f.initialize(t)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + f.token(t, alice, services.RolePlayer)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "BALANCE_UPDATE", msg["type"])

	_, err = f.engine.PlaceBet(t.Context(), alice, &models.BetRequest{GameType: models.GameTypeSlots, BetAmount: 1_000_000})
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, string(models.EventBetPlaced), msg["type"])
	assert.Equal(t, alice, msg["player"])

	require.NoError(t, conn.WriteJSON(gin.H{"type": "PING"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "PONG", msg["type"])
}
