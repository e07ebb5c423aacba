// Command mentortoken prints a bearer token for the mentor routes, e.g. for
// the approval workflow that calls /api/assign-intervention.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/zaqqye/intervention_engine/internal/config"
	"github.com/zaqqye/intervention_engine/internal/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	subject := flag.String("sub", "n8n", "token subject")
	role := flag.String("role", middleware.RoleAutomation, "mentor, automation or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if cfg.MentorJWTSecret == "" {
		fmt.Fprintln(os.Stderr, "MENTOR_JWT_SECRET is not set; mentor routes are open")
		os.Exit(1)
	}
	token, err := middleware.SignMentorToken(cfg.MentorJWTSecret, *subject, *role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
