// Command seed creates the initial admin account.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marovi-edu/tuition-api/internal/models"
	"github.com/marovi-edu/tuition-api/internal/repository"
	"github.com/marovi-edu/tuition-api/pkg/config"
	"github.com/marovi-edu/tuition-api/pkg/database"
)

func main() {
	var (
		username string
		password string
	)
	flag.StringVar(&username, "username", "admin", "admin username")
	flag.StringVar(&password, "password", "admin123", "admin password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)
	if existing, err := users.FindByUsername(ctx, username); err == nil && existing != nil {
		fmt.Println("admin user already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	if err := users.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}); err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Printf("admin user %q created\n", username)
}
