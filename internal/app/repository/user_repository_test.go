package repository

import (
	"testing"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Upsert(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := NewUserRepository(testDB)

	user := &model.User{Email: "livreur@example.com", Name: "Karim", Role: model.RoleUser}
	require.NoError(t, repo.Upsert(user))
	require.NotZero(t, user.ID)

	promoted := &model.User{Email: "livreur@example.com", Name: "Karim B.", Role: model.RoleDelivery}
	require.NoError(t, repo.Upsert(promoted))
	assert.Equal(t, user.ID, promoted.ID)

	stored, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDelivery, stored.Role)
	assert.Equal(t, "Karim B.", stored.Name)
}
