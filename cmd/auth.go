package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/server"
	"github.com/desertthunder/showsync/internal/shared"
)

const loginTimeout = 5 * time.Minute

// AuthLogin runs the OAuth2 authorization code flow against Trakt.
//
// A local callback server is started on the configured host and port, the user approves access in a
// browser and the exchanged token is stored in the database.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Trakt
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: set credentials.trakt.client_id and client_secret in %s", shared.ErrMissingCredentials, r.configPath)
	}

	trakt, err := r.traktService(ctx)
	if err != nil {
		return err
	}

	callbackPath := "/callback"
	if u, err := url.Parse(creds.RedirectURI); err == nil && u.Path != "" {
		callbackPath = u.Path
	}

	state := uuid.NewString()
	handler := server.NewOAuthHandler(trakt, state, callbackPath)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)
	router.Handle("GET", "/healthz", server.Healthz())

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	srv, err := server.Listen(addr, router, r.logger)
	if err != nil {
		return err
	}
	srv.Serve()
	defer srv.Shutdown(context.WithoutCancel(ctx))

	r.logger.Debug("callback server listening", "addr", srv.Addr(), "path", callbackPath)

	authURL := trakt.AuthCodeURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to authorize showsync:\n%s\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to authorize showsync:\n%s\n", authURL)
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return err
		}
		r.logger.Info("authentication successful", "expires", result.Token.Expiry)
		return r.writePlain("✓ Connected to Trakt\n")
	case <-ctx.Done():
		return &shared.AuthorizationError{Reason: "login timed out", Err: ctx.Err()}
	}
}

// AuthStatus checks the stored session, refreshing it when expired.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	trakt, err := r.traktService(ctx)
	if err != nil {
		return err
	}
	if err := trakt.CheckAuthorization(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Authenticated with Trakt\n")
}

// AuthLogout revokes the stored session and removes it from the database.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	trakt, err := r.traktService(ctx)
	if err != nil {
		return err
	}
	if err := trakt.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}
