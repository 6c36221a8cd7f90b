// Command tokengen prints a signed access token for local development.
//
//	go run ./cmd/tokengen -sub worker-7 -role worker
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/raycargo/backoffice/internal/config"
	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/service"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	sub := flag.String("sub", "dev-admin", "token subject (user id)")
	role := flag.String("role", string(domain.RoleAdmin), "admin, worker or client")
	ttl := flag.Duration("ttl", cfg.JWTAccessTTL, "token lifetime")
	flag.Parse()

	r := domain.Role(*role)
	if !r.Valid() {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	token, err := service.NewTokenService(cfg.JWTSecret, *ttl).Issue(*sub, r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
