package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shelftrack/internal/models"
	"shelftrack/internal/services"
)

type stubUserService struct {
	auth *models.AuthResponse
	user *models.User
	err  error
}

func (s *stubUserService) RegisterUser(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	return s.auth, s.err
}

func (s *stubUserService) LoginUser(ctx context.Context, creds *models.Login) (*models.AuthResponse, error) {
	return s.auth, s.err
}

func (s *stubUserService) GetUserProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.user, s.err
}

func (s *stubUserService) UpdateUserProfile(ctx context.Context, userID primitive.ObjectID, updatePayload *models.UserProfileUpdate) (*models.User, error) {
	return s.user, s.err
}

func (s *stubUserService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	return s.err
}

func (s *stubUserService) GetTotalUsers(ctx context.Context) (int64, error) {
	return 0, nil
}

func TestRegisterStatusMapping(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		want int
	}{
		"created":    {nil, http.StatusCreated},
		"validation": {services.ValidationError("invalid email format"), http.StatusBadRequest},
		"duplicate":  {errors.New("email already exists"), http.StatusConflict},
		"backend":    {errors.New("internal server error"), http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			h := NewUserHandler(&stubUserService{auth: &models.AuthResponse{Token: "tok"}, err: tc.err})
			rec := httptest.NewRecorder()

			r := httptest.NewRequest(http.MethodPost, "/api/auth/register",
				strings.NewReader(`{"username":"u","email":"u@example.com","password":"Sup3r$ecret"}`))
			h.Register(rec, r)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestLoginInvalidCredentialsIsUnauthorized(t *testing.T) {
	h := NewUserHandler(&stubUserService{err: errors.New("invalid credentials")})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"u@example.com","password":"wrong"}`))
	h.Login(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginReturnsToken(t *testing.T) {
	h := NewUserHandler(&stubUserService{auth: &models.AuthResponse{Token: "tok", User: models.User{Username: "u"}}})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"u@example.com","password":"Sup3r$ecret"}`))
	h.Login(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"tok"`)
}

func TestDeleteMyProfileNoContent(t *testing.T) {
	h := NewUserHandler(&stubUserService{})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodDelete, "/api/me", nil)
	ctx := context.WithValue(r.Context(), "userID", primitive.NewObjectID().Hex())
	h.DeleteMyProfile(rec, r.WithContext(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
