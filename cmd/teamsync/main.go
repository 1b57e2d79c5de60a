// Command teamsync signs in to a TeamSync server and prints account data.
//
//	teamsync -url http://localhost:8080 -email a@b.com me
//
// The access token lives only for the duration of one invocation.
package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	app := &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
	code := app.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
