package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"shelftrack/internal/models"
)

type fakeUserRepo struct {
	byEmail    map[string]*models.User
	byUsername map[string]*models.User
	byID       map[primitive.ObjectID]*models.User

	createCalls      int
	lastUpdateFields bson.M
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail:    make(map[string]*models.User),
		byUsername: make(map[string]*models.User),
		byID:       make(map[primitive.ObjectID]*models.User),
	}
}

func (f *fakeUserRepo) add(user *models.User) {
	f.byEmail[user.Email] = user
	f.byUsername[user.Username] = user
	f.byID[user.ID] = user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.createCalls++
	// Store a snapshot so later mutations of the caller's struct (e.g. the
	// service blanking the password) don't alter the "persisted" record.
	stored := *user
	f.add(&stored)
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return user, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return user, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, ok := f.byID[userID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, userID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error) {
	f.lastUpdateFields = updateFields
	if _, ok := f.byID[userID]; !ok {
		return &mongo.UpdateResult{}, nil
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, userID primitive.ObjectID) (*mongo.DeleteResult, error) {
	user, ok := f.byID[userID]
	if !ok {
		return &mongo.DeleteResult{}, nil
	}
	delete(f.byID, userID)
	delete(f.byEmail, user.Email)
	delete(f.byUsername, user.Username)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (f *fakeUserRepo) CountAll(ctx context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

// newTestUserService builds the service around a fake repository without
// registering its gauge, so each test can create its own instance.
func newTestUserService(repo *fakeUserRepo) UserService {
	return &userService{
		userRepo:        repo,
		totalUsersGauge: prometheus.NewGauge(prometheus.GaugeOpts{Name: "app_total_users_test"}),
	}
}

func registrationPayload() *models.User {
	return &models.User{
		Username: "collector",
		Email:    "collector@example.com",
		Password: "Sup3r$ecret",
	}
}

func TestRegisterUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	resp, err := svc.RegisterUser(context.Background(), registrationPayload())
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	assert.Equal(t, "collector", resp.User.Username)
	assert.Empty(t, resp.User.Password, "password must never be returned")
	assert.Contains(t, resp.User.ProfilePicture, "dicebear", "a default avatar is assigned")

	stored := repo.byEmail["collector@example.com"]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Sup3r$ecret")),
		"stored password must be a bcrypt hash of the plaintext")
}

func TestRegisterUserValidation(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	for name, mutate := range map[string]func(*models.User){
		"missing username": func(u *models.User) { u.Username = "" },
		"missing email":    func(u *models.User) { u.Email = "" },
		"missing password": func(u *models.User) { u.Password = "" },
		"bad email":        func(u *models.User) { u.Email = "not-an-email" },
		"weak password":    func(u *models.User) { u.Password = "password" },
		"short password":   func(u *models.User) { u.Password = "aB1$" },
	} {
		payload := registrationPayload()
		mutate(payload)

		_, err := svc.RegisterUser(context.Background(), payload)
		var ve ValidationError
		assert.ErrorAs(t, err, &ve, name)
	}
	assert.Zero(t, repo.createCalls)
}

func TestRegisterUserDuplicates(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)
	repo.add(&models.User{
		ID:       primitive.NewObjectID(),
		Username: "collector",
		Email:    "taken@example.com",
	})

	payload := registrationPayload()
	_, err := svc.RegisterUser(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already exists")

	payload = registrationPayload()
	payload.Username = "someoneelse"
	payload.Email = "taken@example.com"
	_, err = svc.RegisterUser(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email already exists")
}

func TestLoginUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	hashed, err := bcrypt.GenerateFromPassword([]byte("Sup3r$ecret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.add(&models.User{
		ID:       primitive.NewObjectID(),
		Username: "collector",
		Email:    "collector@example.com",
		Password: string(hashed),
	})

	resp, err := svc.LoginUser(context.Background(), &models.Login{
		Email:    "collector@example.com",
		Password: "Sup3r$ecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Empty(t, resp.User.Password)
}

func TestLoginUserInvalidCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	hashed, err := bcrypt.GenerateFromPassword([]byte("Sup3r$ecret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.add(&models.User{
		ID:       primitive.NewObjectID(),
		Email:    "collector@example.com",
		Password: string(hashed),
	})

	// unknown email and wrong password fail with the same message
	_, err = svc.LoginUser(context.Background(), &models.Login{Email: "nobody@example.com", Password: "Sup3r$ecret"})
	assert.EqualError(t, err, "invalid credentials")

	_, err = svc.LoginUser(context.Background(), &models.Login{Email: "collector@example.com", Password: "wrong"})
	assert.EqualError(t, err, "invalid credentials")
}

func TestUpdateUserProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)
	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "collector",
		Email:    "collector@example.com",
	}
	repo.add(user)

	username := "newname"
	_, err := svc.UpdateUserProfile(context.Background(), user.ID, &models.UserProfileUpdate{Username: &username})
	require.NoError(t, err)
	assert.Equal(t, "newname", repo.lastUpdateFields["username"])
	assert.Contains(t, repo.lastUpdateFields, "updatedAt")
	assert.Len(t, repo.lastUpdateFields, 2)
}

func TestUpdateUserProfileRejectsTakenEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)
	user := &models.User{ID: primitive.NewObjectID(), Username: "collector", Email: "collector@example.com"}
	repo.add(user)
	repo.add(&models.User{ID: primitive.NewObjectID(), Username: "other", Email: "other@example.com"})

	taken := "other@example.com"
	_, err := svc.UpdateUserProfile(context.Background(), user.ID, &models.UserProfileUpdate{Email: &taken})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")
}

func TestUpdateUserProfileNoFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	_, err := svc.UpdateUserProfile(context.Background(), primitive.NewObjectID(), &models.UserProfileUpdate{})
	var ve ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)
	user := &models.User{ID: primitive.NewObjectID(), Username: "collector", Email: "collector@example.com"}
	repo.add(user)

	require.NoError(t, svc.DeleteUser(context.Background(), user.ID))
	assert.NotContains(t, repo.byID, user.ID)

	err := svc.DeleteUser(context.Background(), user.ID)
	assert.Error(t, err)
}
