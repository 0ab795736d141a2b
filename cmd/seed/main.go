package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/recetteplus/recette-backend/config"
	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/internal/db"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"github.com/recetteplus/recette-backend/pkg/util"
)

// Seeds the demo catalog and one account per role, then prints access tokens
// for local testing. Identity is issued elsewhere in production.
func main() {
	tokenTTL := flag.Duration("ttl", 24*time.Hour, "lifetime of the printed access tokens")
	skipCatalog := flag.Bool("skip-catalog", false, "only upsert the demo accounts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.Server.Environment == "production" {
		log.Fatal("Refusing to seed demo accounts in production")
	}

	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      "console",
		EnableColor: true,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if !*skipCatalog {
		if err := db.Seed(); err != nil {
			log.Fatal("Failed to seed catalog:", err)
		}
	}

	users := []model.User{
		{Email: "client@recette.plus", Name: "Camille Martin", Role: model.RoleUser, Address: "12 rue des Lilas, 75011 Paris"},
		{Email: "gestion@recette.plus", Name: "Nadia Benali", Role: model.RoleOrderManager},
		{Email: "livreur@recette.plus", Name: "Karim Haddad", Role: model.RoleDelivery},
		{Email: "admin@recette.plus", Name: "Admin Recette+", Role: model.RoleAdmin},
	}

	userRepo := repository.NewUserRepository(db.GetDB())
	fmt.Printf("Access tokens (valid %s):\n\n", *tokenTTL)
	for i := range users {
		user := &users[i]
		if err := userRepo.Upsert(user); err != nil {
			log.Fatalf("Failed to upsert %s: %v", user.Email, err)
		}

		pair, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role), cfg.JWT.Secret, *tokenTTL, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to sign token for %s: %v", user.Email, err)
		}
		fmt.Printf("%-14s %-24s id=%d\n%s\n\n", user.Role, user.Email, user.ID, pair.AccessToken)
	}
}
