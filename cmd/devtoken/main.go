// Command devtoken prints a bearer token for local development, signed with
// JWT_SECRET the same way the identity provider signs production tokens.
//
//	go run ./cmd/devtoken -sub alice -name Alice -email alice@campus.edu
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkordes/campusride/internal/auth"
	"github.com/pkordes/campusride/internal/config"
	"github.com/pkordes/campusride/internal/domain"
)

func main() {
	sub := flag.String("sub", "", "user id (token subject)")
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "email address")
	picture := flag.String("picture", "", "profile picture URL")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *sub == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set and -sub given")
		flag.Usage()
		os.Exit(2)
	}

	u := domain.User{ID: *sub, Name: *name, Email: *email}
	if *picture != "" {
		u.ProfilePicURL = picture
	}
	token, err := auth.NewJWTManager(secret, *ttl).Generate(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
