package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shelftrack/internal/models"
	"shelftrack/internal/services"
)

type stubItemService struct {
	listResp  *models.ItemListResponse
	item      *models.ItemWithOwner
	created   *models.Item
	err       error
	deleteErr error
}

func (s *stubItemService) GetItems(ctx context.Context, params url.Values) (*models.ItemListResponse, error) {
	return s.listResp, s.err
}

func (s *stubItemService) GetItemByID(ctx context.Context, itemID primitive.ObjectID) (*models.ItemWithOwner, error) {
	return s.item, s.err
}

func (s *stubItemService) AddItem(ctx context.Context, userID primitive.ObjectID, req models.AddItemRequest) (*models.Item, error) {
	return s.created, s.err
}

func (s *stubItemService) UpdateItem(ctx context.Context, userID, itemID primitive.ObjectID, req models.UpdateItemRequest) (*models.ItemWithOwner, error) {
	return s.item, s.err
}

func (s *stubItemService) DeleteItem(ctx context.Context, userID, itemID primitive.ObjectID) error {
	return s.deleteErr
}

func authedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	ctx := context.WithValue(r.Context(), "userID", primitive.NewObjectID().Hex())
	r = r.WithContext(ctx)
	return mux.SetURLVars(r, map[string]string{"id": primitive.NewObjectID().Hex()})
}

func TestDeleteItemStatusMapping(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		want int
	}{
		"success":   {nil, http.StatusOK},
		"not found": {services.ErrItemNotFound, http.StatusNotFound},
		"not owner": {services.ErrNotOwner, http.StatusForbidden},
		"backend":   {errors.New("mongo exploded"), http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			h := NewItemHandler(&stubItemService{deleteErr: tc.err})
			rec := httptest.NewRecorder()

			h.DeleteItem(rec, authedRequest(http.MethodDelete, "/api/collections/x", ""))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestBackendErrorsStayGeneric(t *testing.T) {
	h := NewItemHandler(&stubItemService{err: errors.New("connection refused to mongo://internal")})
	rec := httptest.NewRecorder()

	h.GetItem(rec, authedRequest(http.MethodGet, "/api/collections/x", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "mongo", "backend detail must not leak to clients")
}

func TestValidationErrorsCarryTheirMessage(t *testing.T) {
	h := NewItemHandler(&stubItemService{err: services.ValidationError("at least one image is required")})
	rec := httptest.NewRecorder()

	h.AddItem(rec, authedRequest(http.MethodPost, "/api/collections", `{"title":"x"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one image is required")
}

func TestAddItemRespondsCreated(t *testing.T) {
	created := &models.Item{ID: primitive.NewObjectID(), Title: "Spirited Away Art Book"}
	h := NewItemHandler(&stubItemService{created: created})
	rec := httptest.NewRecorder()

	h.AddItem(rec, authedRequest(http.MethodPost, "/api/collections", `{"title":"x"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Spirited Away Art Book")
}

func TestItemEndpointsRequireAuth(t *testing.T) {
	h := NewItemHandler(&stubItemService{})
	rec := httptest.NewRecorder()

	// no userID in context
	r := httptest.NewRequest(http.MethodGet, "/api/collections", nil)
	h.GetItems(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetItemRejectsMalformedID(t *testing.T) {
	h := NewItemHandler(&stubItemService{})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodGet, "/api/collections/nope", nil)
	ctx := context.WithValue(r.Context(), "userID", primitive.NewObjectID().Hex())
	r = mux.SetURLVars(r.WithContext(ctx), map[string]string{"id": "nope"})

	h.GetItem(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetItemsReturnsListPayload(t *testing.T) {
	h := NewItemHandler(&stubItemService{listResp: &models.ItemListResponse{
		Collections: []models.ItemWithOwner{},
		Page:        1,
		Limit:       10,
		Total:       0,
		TotalPages:  0,
	}})
	rec := httptest.NewRecorder()

	h.GetItems(rec, authedRequest(http.MethodGet, "/api/collections?page=1", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"collections":[]`)
	assert.Contains(t, rec.Body.String(), `"totalPages":0`)
}
