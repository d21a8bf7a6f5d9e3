package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Signs a session token for local development, matching what the identity
// provider would issue in production.
func main() {
	subject := flag.String("subject", "dev-user-1", "external user id (token subject)")
	email := flag.String("email", "dev@example.com", "user email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	signingKey := os.Getenv("SESSION_SIGNING_KEY")
	if signingKey == "" {
		log.Fatal("SESSION_SIGNING_KEY is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   *subject,
		"email": *email,
		"iat":   now.Unix(),
		"exp":   now.Add(*ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(signed)
}
