package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shelftrack/internal/database"
	"shelftrack/internal/models"
)

func TestUserRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	db := database.New(uri)
	defer db.Close()

	userRepo := NewUserRepository(db)

	t.Run("Create and Get User", func(t *testing.T) {
		user := &models.User{
			ID:       primitive.NewObjectID(),
			Username: "testuser",
			Email:    "test@example.com",
			Password: "password",
		}

		createdUser, err := userRepo.Create(context.Background(), user)
		require.NoError(t, err)
		defer userRepo.Delete(context.Background(), createdUser.ID)

		foundUser, err := userRepo.FindByID(context.Background(), createdUser.ID)
		require.NoError(t, err)
		assert.Equal(t, createdUser.ID, foundUser.ID)

		byEmail, err := userRepo.FindByEmail(context.Background(), "test@example.com")
		require.NoError(t, err)
		assert.Equal(t, createdUser.ID, byEmail.ID)

		byUsername, err := userRepo.FindByUsername(context.Background(), "testuser")
		require.NoError(t, err)
		assert.Equal(t, createdUser.ID, byUsername.ID)
	})

	t.Run("Update User", func(t *testing.T) {
		user := &models.User{
			ID:       primitive.NewObjectID(),
			Username: "updateuser",
			Email:    "update@example.com",
			Password: "password",
		}

		createdUser, err := userRepo.Create(context.Background(), user)
		require.NoError(t, err)
		defer userRepo.Delete(context.Background(), createdUser.ID)

		result, err := userRepo.Update(context.Background(), createdUser.ID, bson.M{"username": "renamed"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.MatchedCount)

		found, err := userRepo.FindByID(context.Background(), createdUser.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", found.Username)
	})
}
