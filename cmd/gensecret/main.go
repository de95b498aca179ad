package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/admin"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

// Prints a fresh webhook secret and verify token, or an operator token when
// -operator is set.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	operator := flag.String("operator", "", "Issue an operator JWT for this subject instead of a webhook secret")
	ttl := flag.Duration("ttl", 24*time.Hour, "Operator token lifetime")
	flag.Parse()

	if *operator == "" {
		secret, err := domain.GenerateSecret()
		if err != nil {
			return err
		}
		verifyToken, err := domain.GenerateVerifyToken()
		if err != nil {
			return err
		}
		fmt.Printf("SECRET=%s\nVERIFY_TOKEN=%s\n", secret, verifyToken)
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	key := os.Getenv("ADMIN_JWT_SECRET")
	if key == "" {
		return errors.New("ADMIN_JWT_SECRET is not set")
	}

	token, err := admin.NewJWTService(key, admin.Issuer, *ttl).GenerateToken(*operator, admin.RoleOperator)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Printf("TOKEN=%s\n", token)
	return nil
}
