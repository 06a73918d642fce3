package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Chochanguk/Yoribogo/server/config"
	"github.com/Chochanguk/Yoribogo/server/internal/service"
	"github.com/Chochanguk/Yoribogo/server/internal/types"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("issue_token: %v", err)
	}
}

// run prints a signed access token. The secret comes from -secret or, when
// that is empty, from the loaded configuration.
func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue_token", flag.ContinueOnError)
	user := fs.String("user", "", "user id (random when empty)")
	role := fs.String("role", "", `token role, e.g. "admin"`)
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := fs.String("secret", "", "signing secret (defaults to JWT_SECRET)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *ttl <= 0 {
		return fmt.Errorf("-ttl must be positive")
	}
	if *role != "" && *role != types.RoleAdmin {
		return fmt.Errorf("unknown role %q", *role)
	}

	userID := uuid.New()
	if *user != "" {
		id, err := uuid.Parse(*user)
		if err != nil {
			return fmt.Errorf("invalid -user: %w", err)
		}
		userID = id
	}

	if *secret == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		*secret = cfg.JWTSecret
	}

	token, err := service.NewTokenService(*secret).GenerateToken(userID, *role, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
