// Command statustoken mints a bearer token for the agent's operator endpoints
// using the status.jwt_secret of the agent configuration.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app"
	"github.com/IamSpotted/ITSF-Agent/app/services"
)

func main() {
	operator := flag.String("operator", "", "name recorded with operator actions")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to status.token_ttl)")
	flag.Parse()

	if *operator == "" {
		log.Fatal("-operator is required")
	}

	cfg, err := app.LoadConfig(app.ConfigPath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	expiration := cfg.Status.TokenTTL
	if *ttl > 0 {
		expiration = *ttl
	}

	token, err := services.NewJWTService(cfg.Status.JWTSecret, expiration).GenerateToken(*operator)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}

	fmt.Println(token)
	log.Printf("token for %s expires at %s", *operator, time.Now().Add(expiration).UTC().Format(time.RFC3339))
}
