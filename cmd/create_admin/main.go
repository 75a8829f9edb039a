package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"golang.org/x/term"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/usecase/user_management"
	"github.com/fixora/flowauth/infrastructure/adapter/postgres"
	"github.com/fixora/flowauth/infrastructure/config"
	"github.com/fixora/flowauth/infrastructure/service/password"
)

// Usage: create_admin [username] [password] [real name]
// Without a password argument ADMIN_PASSWORD is used, then a prompt.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	username := cfg.SeedAdminUsername
	userPassword := os.Getenv("ADMIN_PASSWORD")
	name := "Administrator"

	if len(os.Args) > 1 {
		username = os.Args[1]
	}
	if len(os.Args) > 2 {
		userPassword = os.Args[2]
	}
	if len(os.Args) > 3 {
		name = os.Args[3]
	}
	if userPassword == "" {
		userPassword, err = promptPassword()
		if err != nil {
			log.Fatalf("Failed to read password: %v", err)
		}
	}

	users := user_management.NewUserManagementUseCase(
		postgres.NewUserRepositoryAdapter(db),
		password.NewBcryptPasswordService(cfg.BcryptCost),
	)
	admin, err := users.CreateUser(ctx, inbound.CreateUserRequest{
		Username: username,
		Password: userPassword,
		RealName: name,
		Roles:    []string{"ADMIN"},
	})
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created successfully\n")
	fmt.Printf("ID:          %d\n", admin.ID)
	fmt.Printf("Username:    %s\n", admin.Username)
	fmt.Printf("Name:        %s\n", admin.RealName)
	fmt.Printf("Authorities: %v\n", admin.Authorities)
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password given and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
