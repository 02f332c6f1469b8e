// Command client sends image files to a mathsolver server and prints the
// streamed answers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mathsolver/internal/client/config"
	"github.com/dmitrijs2005/mathsolver/internal/client/solve"
	"github.com/dmitrijs2005/mathsolver/internal/filex"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const defaultMaxImageBytes = 10 << 20

var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "client:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: client [flags] image [image...]")
		fs.PrintDefaults()
	}
	fs.StringP("config", "c", "", "path to JSON config file")
	fs.StringVarP(&cfg.ServerURL, "server", "s", cfg.ServerURL, "server URL (ws, wss, http or https)")
	fs.StringVarP(&cfg.Token, "token", "t", cfg.Token, "access token")
	fs.StringVar(&cfg.RefreshToken, "refresh-token", cfg.RefreshToken, "refresh token used when no access token is given")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "time limit for each image")
	maxBytes := fs.Int64("max-image-bytes", defaultMaxImageBytes, "refuse images larger than this")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no image files given")
	}

	token, err := resolveToken(ctx, cfg, stderr)
	if err != nil {
		return err
	}

	sess, err := solve.Dial(ctx, cfg.ServerURL, token)
	if err != nil {
		return err
	}
	defer sess.Close()

	var failed int
	for _, path := range fs.Args() {
		if fs.NArg() > 1 {
			fmt.Fprintf(stdout, "== %s ==\n", path)
		}

		img, err := filex.ReadLimited(path, *maxBytes)
		if err != nil {
			fmt.Fprintln(stderr, err)
			failed++
			continue
		}

		err = solveOne(ctx, sess, img, cfg, stdout)
		var se *solve.ServerError
		switch {
		case err == nil:
		case errors.As(err, &se):
			fmt.Fprintf(stderr, "%s: %s\n", path, se.Message)
			failed++
		default:
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, fs.NArg())
	}
	return nil
}

func solveOne(ctx context.Context, sess *solve.Session, img []byte, cfg *config.Config, stdout io.Writer) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	_, err := sess.Solve(ctx, img, func(chunk string) {
		fmt.Fprint(stdout, chunk)
	})
	if err == nil {
		fmt.Fprintln(stdout)
	}
	return err
}

// resolveToken picks the access token: the configured one, one traded for
// the refresh token, or one typed at the terminal.
func resolveToken(ctx context.Context, cfg *config.Config, stderr io.Writer) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}

	if cfg.RefreshToken != "" {
		return solve.RefreshAccessToken(ctx, nil, cfg.ServerURL, cfg.RefreshToken)
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("no access token: use --token or MATHSOLVER_TOKEN")
	}

	fmt.Fprint(stderr, "Access token: ")
	b, err := readPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", errors.New("no access token given")
	}
	return string(b), nil
}
