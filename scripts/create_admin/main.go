// Command create_admin bootstraps a system user so a fresh deployment
// has someone who can log in. Intended for operators, not end users.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zus-pop/academix-api/pkg/config"
	"github.com/zus-pop/academix-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
		role     string
	)

	flag.StringVar(&email, "email", "", "login email for the new user")
	flag.StringVar(&password, "password", "", "initial password (prompted via env ADMIN_PASSWORD if empty)")
	flag.StringVar(&fullName, "name", "System Administrator", "display name")
	flag.StringVar(&role, "role", "ADMIN", "role: ADMIN, MANAGER or SUPERVISOR")
	flag.Parse()

	if email == "" {
		log.Fatal("missing -email")
	}
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}
	if password == "" {
		log.Fatal("missing -password (or ADMIN_PASSWORD env)")
	}
	role = strings.ToUpper(role)
	switch role {
	case "ADMIN", "MANAGER", "SUPERVISOR":
	default:
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const query = `INSERT INTO system_users (id, email, password_hash, full_name, role, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, active = TRUE, updated_at = EXCLUDED.updated_at`
	id := uuid.NewString()
	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, query, id, strings.ToLower(email), string(hash), fullName, role, now); err != nil {
		log.Fatalf("failed to upsert user: %v", err)
	}

	fmt.Printf("user %s ready with role %s\n", strings.ToLower(email), role)
}
