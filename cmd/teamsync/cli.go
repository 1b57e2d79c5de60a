package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rafaelguerrae/TeamSync/pkg/sessionclient"
)

type cli struct {
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer
	readPassword func() ([]byte, error)
	clientOpts   []sessionclient.Option
}

const usage = `usage: teamsync [-url URL] [-email EMAIL] <command>

commands:
  signin   sign in and print the account
  me       print the signed-in account
  teams    list the teams of the signed-in account

The refresh cookie is Secure, so session refresh and sign-out only carry it
over https. Against a plain http URL every command still works on the access
token from sign-in, but the session cannot be refreshed.

Prompts are written to stderr; stdout carries only the JSON result.
`

func (c *cli) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("teamsync", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	baseURL := fs.String("url", envOr("TEAMSYNC_URL", "http://localhost:8080"), "server base URL")
	email := fs.String("email", os.Getenv("TEAMSYNC_EMAIL"), "account email")
	fs.Usage = func() { fmt.Fprint(c.stderr, usage) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	command := fs.Arg(0)
	switch command {
	case "signin", "me", "teams":
	default:
		fmt.Fprintf(c.stderr, "unknown command %q\n", command)
		fs.Usage()
		return 2
	}

	if strings.HasPrefix(strings.ToLower(*baseURL), "http://") {
		fmt.Fprintln(c.stderr, "warning: the refresh cookie is not sent over http; use an https URL to refresh sessions")
	}

	if err := c.execute(ctx, *baseURL, *email, command); err != nil {
		fmt.Fprintln(c.stderr, "error:", err)
		return 1
	}
	return 0
}

func (c *cli) execute(ctx context.Context, baseURL string, email string, command string) error {
	client, err := sessionclient.New(baseURL, c.clientOpts...)
	if err != nil {
		return err
	}
	defer client.Close()

	reader := bufio.NewReader(c.stdin)
	if strings.TrimSpace(email) == "" {
		fmt.Fprint(c.stderr, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(c.stderr, "Password: ")
	password, err := c.readPassword()
	fmt.Fprintln(c.stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	user, err := client.SignIn(ctx, email, string(password))
	clear(password)
	if err != nil {
		return err
	}
	defer func() { _ = client.SignOut(context.WithoutCancel(ctx)) }()

	switch command {
	case "signin":
		return c.print(user)
	case "me":
		var me sessionclient.User
		if err := client.GetJSON(ctx, "/users/me", &me); err != nil {
			return err
		}
		return c.print(me)
	default:
		var teams []json.RawMessage
		if err := client.GetJSON(ctx, fmt.Sprintf("/users/%d/teams", user.ID), &teams); err != nil {
			return err
		}
		if teams == nil {
			teams = []json.RawMessage{}
		}
		return c.print(teams)
	}
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
