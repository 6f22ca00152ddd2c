// Command devtoken mints an access token for local testing against a running
// server. Tokens in production come from the identity provider.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
)

func main() {
	var (
		userID = flag.String("user", "", "User id placed in the token")
		role   = flag.String("role", string(auth.RolePlayer), "Role: player, manager or admin")
		ttl    = flag.Duration("ttl", time.Hour, "Token lifetime")
	)
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")

	if *userID == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "-user and JWT_SECRET are required")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if !auth.Role(*role).Valid() {
		log.Fatal().Str("role", *role).Msg("Unknown role")
	}

	token, err := auth.NewJWTManager(secret, *ttl).GenerateAccessToken(*userID, auth.Role(*role))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}
