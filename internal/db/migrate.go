package db

import (
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.PersonalCart{},
		&model.PersonalCartItem{},
		&model.RecipeCart{},
		&model.RecipeCartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.DeliveryTracking{},
		&model.Favorite{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed inserts the demo catalog when the products table is empty.
func Seed() error {
	return SeedCatalog(DB)
}

func SeedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count products", err)
		return err
	}
	if count > 0 {
		logger.Info("Catalog already seeded, skipping", map[string]interface{}{
			"products": count,
		})
		return nil
	}

	products := DemoCatalog()
	if err := db.Create(&products).Error; err != nil {
		logger.Error("Failed to seed catalog", err)
		return err
	}

	logger.Info("Catalog seeded", map[string]interface{}{
		"products": len(products),
	})
	return nil
}

// DemoCatalog returns a small French grocery catalog. Prices are in cents.
func DemoCatalog() []model.Product {
	discount := 20
	tomatoOriginal := int64(450)

	return []model.Product{
		{Name: "Tomates grappe", Price: 360, Unit: "kg", Category: model.CategoryVegetables, InStock: true, DiscountPercent: &discount, OriginalPrice: &tomatoOriginal},
		{Name: "Oignons jaunes", Price: 190, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
		{Name: "Ail", Price: 120, Unit: "tête", Category: model.CategoryVegetables, InStock: true},
		{Name: "Basilic frais", Price: 150, Unit: "botte", Category: model.CategoryVegetables, InStock: true},
		{Name: "Courgettes", Price: 290, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
		{Name: "Aubergines", Price: 340, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
		{Name: "Poivrons rouges", Price: 420, Unit: "kg", Category: model.CategoryVegetables, InStock: true},
		{Name: "Citrons", Price: 80, Unit: "pièce", Category: model.CategoryFruits, InStock: true},
		{Name: "Poulet fermier", Price: 1290, Unit: "pièce", Category: model.CategoryMeat, InStock: true},
		{Name: "Filet de cabillaud", Price: 2490, Unit: "kg", Category: model.CategoryFish, InStock: false},
		{Name: "Crème fraîche épaisse", Price: 230, Unit: "pot", Category: model.CategoryDairy, InStock: true},
		{Name: "Comté 18 mois", Price: 2890, Unit: "kg", Category: model.CategoryDairy, InStock: true},
		{Name: "Huile d'olive vierge extra", Price: 890, Unit: "bouteille", Category: model.CategoryGrocery, InStock: true},
		{Name: "Farine T55", Price: 140, Unit: "kg", Category: model.CategoryGrocery, InStock: true},
		{Name: "Baguette tradition", Price: 130, Unit: "pièce", Category: model.CategoryBakery, InStock: true},
	}
}
