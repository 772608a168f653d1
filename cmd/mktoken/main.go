package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwtsvc "driveschool/internal/pkg/jwt"
)

// Mints an HS256 API token for local development and support tooling.
func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user", 0, "user id to embed in the token")
	role := flag.String("role", "admin", "role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is empty")
	}
	if *userID <= 0 {
		log.Fatal("-user is required")
	}

	token, err := jwtsvc.New(secret, *ttl).GenerateToken(*userID, *role)
	if err != nil {
		log.Fatalf("token generation failed: %v", err)
	}
	fmt.Println(token)
}
