package repository

import (
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository reads the local projection of identity-provider accounts.
type UserRepository interface {
	Upsert(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert inserts the user or refreshes name/role/address on an email collision.
func (r *userRepository) Upsert(user *model.User) error {
	logger.Debug("Upserting user in database", map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "phone", "address", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		logger.Error("Failed to upsert user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return classify(err)
	}

	if user.ID == 0 {
		stored, err := r.FindByEmail(user.Email)
		if err != nil {
			return err
		}
		user.ID = stored.ID
	}

	logger.Debug("User upserted in database", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	logger.Debug("Finding user by ID in database", map[string]interface{}{
		"user_id": id,
	})

	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find user by ID in database", err, map[string]interface{}{
				"user_id": id,
			})
		}
		return nil, classify(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	logger.Debug("Finding user by email in database", map[string]interface{}{
		"email": email,
	})

	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find user by email in database", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, classify(err)
	}
	return &user, nil
}
