package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/middleware"
	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

type scholarServiceMock struct {
	listReq    pagination.Request
	createErr  error
	actor      string
	updated    dto.UpdateScholarRequest
	byEmail    string
	deleted    string
	removed    int64
	deletedAll int
}

func (m *scholarServiceMock) List(_ context.Context, req pagination.Request) (*pagination.Result[models.ScholarSummary], error) {
	m.listReq = req
	if req.SortKey == "bogus" {
		return nil, pagination.InvalidSortKey(req.SortKey)
	}
	return &pagination.Result[models.ScholarSummary]{
		Data:      []models.ScholarSummary{{ID: "s1", RefCode: "JP150399"}},
		Total:     11,
		PageIndex: 2,
		PageSize:  5,
	}, nil
}

func (m *scholarServiceMock) Create(_ context.Context, req dto.CreateScholarRequest, actorID string) (*models.ScholarDetail, error) {
	m.actor = actorID
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.ScholarDetail{Scholar: models.Scholar{ID: "s1"}, Account: models.Account{Email: req.Email}}, nil
}

func (m *scholarServiceMock) Get(_ context.Context, id string) (*models.ScholarDetail, error) {
	if id != "s1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scholar not found")
	}
	return &models.ScholarDetail{Scholar: models.Scholar{ID: id}}, nil
}

func (m *scholarServiceMock) GetByAccount(_ context.Context, accountID string) (*models.ScholarDetail, error) {
	return &models.ScholarDetail{Scholar: models.Scholar{ID: "s1", AccountID: accountID}}, nil
}

func (m *scholarServiceMock) Update(_ context.Context, id string, req dto.UpdateScholarRequest, actorID string) (*models.ScholarDetail, error) {
	m.updated, m.actor = req, actorID
	return &models.ScholarDetail{Scholar: models.Scholar{ID: id}}, nil
}

func (m *scholarServiceMock) UpdateByEmail(_ context.Context, email string, req dto.UpdateScholarRequest, actorID string) (*models.ScholarDetail, error) {
	m.byEmail, m.updated, m.actor = email, req, actorID
	return &models.ScholarDetail{Scholar: models.Scholar{ID: "s1"}, Account: models.Account{Email: email}}, nil
}

func (m *scholarServiceMock) Delete(_ context.Context, id string) error {
	m.deleted = id
	return nil
}

func (m *scholarServiceMock) DeleteAll(context.Context) (int, error) {
	return m.deletedAll, nil
}

func (m *scholarServiceMock) RemovePhoneNumber(_ context.Context, _ string, linkID int64) error {
	m.removed = linkID
	return nil
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Error      *struct{ Code, Message string }
	Pagination *struct {
		PageIndex  int `json:"pageIndex"`
		PageSize   int `json:"pageSize"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	}
}

func perform(t *testing.T, router http.Handler, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func newScholarRouter(svc *scholarServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewScholarHandler(svc)
	r := gin.New()
	r.Use(withClaims(&models.JWTClaims{AccountID: "admin-1", Roles: []string{"ADMIN"}}))
	r.GET("/scholars", h.List)
	r.POST("/scholars", h.Create)
	r.GET("/scholars/:id", h.Get)
	r.GET("/scholars/by-account/:accountId", h.GetByAccount)
	r.PATCH("/scholars/:id", h.Update)
	r.PATCH("/scholars/by-email/:email", h.UpdateByEmail)
	r.DELETE("/scholars/:id", h.Delete)
	r.DELETE("/scholars", h.DeleteAll)
	r.DELETE("/scholars/:id/phone-numbers/:phoneId", h.RemovePhoneNumber)
	return r
}

func TestScholarHandlerListBindsSearchRequest(t *testing.T) {
	svc := &scholarServiceMock{}
	w, env := perform(t, newScholarRouter(svc), http.MethodGet,
		"/scholars?pageIndex=2&pageSize=5&query=jose&status=ACTIVE&sort%5Bkey%5D=lastName&sort%5Border%5D=desc", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pagination.Request{PageIndex: 2, PageSize: 5, Query: "jose", Status: "ACTIVE", SortKey: "lastName", SortOrder: pagination.Desc}, svc.listReq)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 11, env.Pagination.Total)
	assert.Equal(t, 3, env.Pagination.TotalPages)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestScholarHandlerListInvalidSortKey(t *testing.T) {
	w, env := perform(t, newScholarRouter(&scholarServiceMock{}), http.MethodGet, "/scholars?sort%5Bkey%5D=bogus", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrInvalidSortKey.Code, env.Error.Code)
}

func TestScholarHandlerCreatePassesActor(t *testing.T) {
	svc := &scholarServiceMock{}
	w, _ := perform(t, newScholarRouter(svc), http.MethodPost, "/scholars", map[string]string{"email": "jose@example.com"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", svc.actor)
}

func TestScholarHandlerCreateErrors(t *testing.T) {
	w, _ := perform(t, newScholarRouter(&scholarServiceMock{}), http.MethodPost, "/scholars", "not-json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cases := map[*appErrors.Error]int{
		appErrors.ErrDuplicateEntity:     http.StatusConflict,
		appErrors.ErrUpstreamAuthFailure: http.StatusBadGateway,
		appErrors.ErrUpstreamTimeout:     http.StatusGatewayTimeout,
		appErrors.ErrOrphanedIdentity:    http.StatusInternalServerError,
	}
	for kind, status := range cases {
		svc := &scholarServiceMock{createErr: appErrors.Clone(kind, kind.Message)}
		w, env := perform(t, newScholarRouter(svc), http.MethodPost, "/scholars", map[string]string{"email": "x@example.com"})
		assert.Equal(t, status, w.Code, kind.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, kind.Code, env.Error.Code)
	}
}

func TestScholarHandlerGet(t *testing.T) {
	router := newScholarRouter(&scholarServiceMock{})

	w, _ := perform(t, router, http.MethodGet, "/scholars/s1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := perform(t, router, http.MethodGet, "/scholars/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "scholar not found", env.Error.Message)

	w, env = perform(t, router, http.MethodGet, "/scholars/by-account/acc-9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"account_id":"acc-9"`)
}

func TestScholarHandlerPatchKeepsPresence(t *testing.T) {
	svc := &scholarServiceMock{}
	w, _ := perform(t, newScholarRouter(svc), http.MethodPatch, "/scholars/s1", `{"egressDate":null,"firstName":"Ana"}`)

	require.Equal(t, http.StatusOK, w.Code)
	egress, ok := svc.updated.EgressDate.Get()
	assert.True(t, ok)
	assert.Nil(t, egress)
	first, ok := svc.updated.FirstName.Get()
	assert.True(t, ok)
	assert.Equal(t, "Ana", first)
	assert.False(t, svc.updated.LastName.Set)
	assert.Equal(t, "admin-1", svc.actor)
}

func TestScholarHandlerDeletes(t *testing.T) {
	svc := &scholarServiceMock{deletedAll: 4}
	router := newScholarRouter(svc)

	w, _ := perform(t, router, http.MethodDelete, "/scholars/s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s1", svc.deleted)

	w, env := perform(t, router, http.MethodDelete, "/scholars", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":4}`, string(env.Data))

	w, _ = perform(t, router, http.MethodDelete, "/scholars/s1/phone-numbers/12", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(12), svc.removed)

	w, _ = perform(t, router, http.MethodDelete, "/scholars/s1/phone-numbers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScholarHandlerUpdateByEmail(t *testing.T) {
	svc := &scholarServiceMock{}
	w, env := perform(t, newScholarRouter(svc), http.MethodPatch, "/scholars/by-email/jose@example.com", `{"firstName":"Ana"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jose@example.com", svc.byEmail)
	assert.Equal(t, "admin-1", svc.actor)
	first, ok := svc.updated.FirstName.Get()
	assert.True(t, ok)
	assert.Equal(t, "Ana", first)
	assert.Contains(t, string(env.Data), "jose@example.com")
}
