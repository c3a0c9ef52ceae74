// Package cli implements the interactive command-line client for the auth
// core: a small REPL around the typed HTTP client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/forkful/authcore/internal/client/client"
	"github.com/forkful/authcore/internal/client/config"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type App struct {
	config   *config.Config
	client   *client.Client
	reader   *bufio.Reader
	loggedIn bool
}

func NewApp(c *config.Config) (*App, error) {
	apiClient := client.New(c.ServerEndpointAddr)
	apiClient.SetTimeout(c.RequestTimeout)
	return &App{config: c, client: apiClient, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) isLoggedIn() bool { return a.loggedIn }

// Register prompts for credentials and creates a new account.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	id, err := a.client.Register(ctx, email, password)
	if err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}
	fmt.Println("Registered, id =", id)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.Login(ctx, email, password); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			fmt.Println("Invalid email or password")
		} else {
			fmt.Println("Login failed:", err)
		}
		return err
	}
	a.loggedIn = true
	fmt.Println("Success!")
	return nil
}

// Sessions lists the user's active sessions across devices.
func (a *App) Sessions(ctx context.Context) error {
	list, err := a.client.ActiveSessions(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrReuseDetected) {
			a.loggedIn = false
			fmt.Println("Session expired, please log in again")
		} else {
			fmt.Println("Error:", err)
		}
		return err
	}

	if len(list) == 0 {
		fmt.Println("No active sessions")
		return nil
	}
	for _, s := range list {
		fmt.Printf("%s  device=%q  issued=%s  last used=%s\n",
			s.FamilyID, s.DeviceLabel,
			s.IssuedAt.Format("2006-01-02 15:04"),
			s.LastUsedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// Refresh forces a token rotation.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		a.loggedIn = false
		fmt.Println("Refresh failed, please log in again:", err)
		return err
	}
	fmt.Println("Tokens rotated")
	return nil
}

// Logout revokes the current session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Revoke(ctx); err != nil {
		fmt.Println("Logout failed:", err)
		return err
	}
	a.loggedIn = false
	fmt.Println("Logged out")
	return nil
}

// LogoutAll revokes every session of the current user.
func (a *App) LogoutAll(ctx context.Context) error {
	if err := a.client.RevokeAll(ctx); err != nil {
		fmt.Println("Logout failed:", err)
		return err
	}
	a.loggedIn = false
	fmt.Println("Logged out everywhere")
	return nil
}

// Run starts the REPL on stdin.
func (a *App) Run(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	statusFn := func() string {
		if a.isLoggedIn() {
			return "online"
		}
		return "logged out"
	}
	runREPL(ctx, a, statusFn, scanner)
}
