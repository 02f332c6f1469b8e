// Command tokengen mints signed tokens for a mathsolver server. It is meant
// for development and operations; users normally get tokens from the
// account system that shares the server's secret.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/server/auth"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("tokengen", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	secret := fs.String("secret", getenv("SOLVER_JWT_SECRET"), "HMAC secret shared with the server (env SOLVER_JWT_SECRET)")
	user := fs.StringP("user", "u", "", "user id placed in the subject claim")
	role := fs.String("role", "", `role claim, e.g. "admin"`)
	refresh := fs.Bool("refresh", false, "mint a refresh token instead of an access token")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("--secret or SOLVER_JWT_SECRET is required")
	}
	if *user == "" {
		return errors.New("--user is required")
	}
	if *ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	var tokenType string
	if *refresh {
		tokenType = common.TokenTypeRefresh
	}

	tok, err := auth.GenerateToken(*user, *role, tokenType, []byte(*secret), *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tok)
	return nil
}
