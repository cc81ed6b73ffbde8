// Command hashpw prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
// Usage:
//
//	echo -n 's3cret' | go run ./cmd/hashpw
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-distribution/pkg/auth"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		log.Fatal().Err(err).Msg("failed to read password from stdin")
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		log.Fatal().Msg("password must not be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}
	fmt.Println(hash)
}
