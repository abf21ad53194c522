package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/otherscentered/platform/internal/clock"
	"github.com/otherscentered/platform/internal/config"
	memberdomain "github.com/otherscentered/platform/internal/member/domain"
	memberrepo "github.com/otherscentered/platform/internal/member/repository"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	needrepo "github.com/otherscentered/platform/internal/need/repository"
	needservice "github.com/otherscentered/platform/internal/need/service"
	"github.com/otherscentered/platform/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopNotifier struct{}

func (noopNotifier) SendEffect(ctx context.Context, need *needdomain.Need, effect needdomain.EffectKind) (needdomain.NotificationResult, error) {
	return needdomain.NotificationSent, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&needdomain.Need{}, &needdomain.NeedEvent{}, &needdomain.NotificationFlag{}, &memberdomain.Member{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	needSvc := needservice.New(needservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     needrepo.Provide(),
		Notifier: noopNotifier{},
	})
	searchSvc := search.New(search.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Clock: clk,
	})

	srv := NewServer(ServerParams{
		Config:    config.Config{},
		Log:       zap.NewNop(),
		DB:        conn,
		GenID:     node,
		NeedSvc:   needSvc,
		SearchSvc: searchSvc,
		Members:   memberrepo.Provide(),
	})

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	registerRoutes(r, srv)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createNeed(t *testing.T, r *gin.Engine) needdomain.Need {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v1/needs", gin.H{
		"title":                  "Winter coats for kids",
		"category":               "clothing",
		"city":                   "Papillion",
		"zip":                    "68046",
		"owner_id":               "100",
		"amount_requested_cents": 12500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var need needdomain.Need
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &need))
	return need
}

func TestCreateMember(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/members", gin.H{
		"display_name": "Pat",
		"email":        "pat@example.org",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var member memberdomain.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &member))
	assert.NotZero(t, member.ID)
	assert.Equal(t, "pat@example.org", member.Email)
}

func TestCreateMemberInvalidEmail(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/members", gin.H{
		"display_name": "Pat",
		"email":        "not-an-address",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAndFetchNeed(t *testing.T) {
	r := newTestRouter(t)
	need := createNeed(t, r)
	assert.Equal(t, needdomain.StatusInReview, need.Status)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/v1/needs/%d", need.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got needdomain.Need
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, need.ID, got.ID)
	assert.Equal(t, "Winter coats for kids", got.Title)
}

func TestSubmitNeedValidation(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/needs", gin.H{"owner_id": "100"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/needs", gin.H{"title": "x", "owner_id": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	r := newTestRouter(t)
	need := createNeed(t, r)
	base := fmt.Sprintf("/v1/needs/%d", need.ID)

	w := doJSON(t, r, http.MethodPost, base+"/publish", gin.H{"actor_id": "1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, base+"/claim", gin.H{"helper_id": "200"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, base+"/verify", gin.H{"actor_id": "1", "amount_confirmed_cents": 12500})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, base+"/close", gin.H{"actor_id": "1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got needdomain.Need
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, needdomain.StatusClosed, got.Status)

	w = doJSON(t, r, http.MethodGet, base+"/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events struct {
		Events []needdomain.NeedEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events.Events, 7)
}

func TestClaimBeforePublishConflicts(t *testing.T) {
	r := newTestRouter(t)
	need := createNeed(t, r)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/v1/needs/%d/claim", need.ID), gin.H{"helper_id": "200"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnknownNeedReturns404(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/needs/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/needs/999999/publish", gin.H{"actor_id": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadNeedIDReturns400(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/needs/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	r := newTestRouter(t)
	need := createNeed(t, r)
	doJSON(t, r, http.MethodPost, fmt.Sprintf("/v1/needs/%d/publish", need.ID), gin.H{"actor_id": "1"})

	w := doJSON(t, r, http.MethodGet, "/v1/needs?category=clothing", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Needs []needdomain.Need `json:"needs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Needs, 1)
	assert.Equal(t, need.ID, resp.Needs[0].ID)

	// Unpublished needs stay off the default grid.
	w = doJSON(t, r, http.MethodGet, "/v1/needs?category=food", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Needs)
}
