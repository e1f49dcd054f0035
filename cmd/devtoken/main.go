// Command devtoken mints an access token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/flag-practice/internal/auth/jwt"
)

func main() {
	var (
		userID = flag.String("user", "", "User id (random when empty)")
		name   = flag.String("name", "Local Learner", "Display name")
		guest  = flag.Bool("guest", false, "Mark the user as a guest")
		ttl    = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	)
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	_ = godotenv.Load("configs/.env")

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable is required")
	}

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			log.Fatal().Err(err).Str("user", *userID).Msg("invalid user id")
		}
		id = parsed
	}

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(secret),
		TTL:    *ttl,
		Issuer: os.Getenv("JWT_ISSUER"),
	})
	token, err := tokens.GenerateAccessToken(jwt.Subject{ID: id, DisplayName: *name, IsGuest: *guest})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}

	log.Info().Str("user_id", id.String()).Dur("ttl", *ttl).Msg("token issued")
	fmt.Println(token)
}
