// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the SmartEco carbon tracker.
// Commands are grouped by who may run them (see internal/guard): protected data
// commands need a session, entry commands (login, register) are for logged-out
// users, and public commands always run. The root command restores the session
// and applies that rule before any command body runs.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"smarteco/cli/internal/config"
	"smarteco/cli/internal/guard"
	"smarteco/cli/internal/httperrors"
	"smarteco/cli/internal/session"
)

// Annotation keys read by the root pre-run hook.
const (
	annotationArea = "area"
	// annotationNoSession marks commands that never open the token store.
	annotationNoSession = "no-session"
)

// errRedirected stops the requested command after the guard already rendered
// something else in its place. It is not a failure.
var errRedirected = errors.New("redirected")

// errNotLoggedIn is returned when a protected command cannot prompt for login.
var errNotLoggedIn = errors.New("not logged in")

func area(a guard.Area) map[string]string {
	return map[string]string{annotationArea: string(a)}
}

// NewRootCmd builds the command tree.
func NewRootCmd(d Deps) *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "smarteco",
		Short: "Track the carbon footprint of your trips",
		Long: `SmartEco records your trips and shows their carbon impact.

Log in or register, add trips with "smarteco trips create", and follow your
footprint on the dashboard. Running smarteco without a command opens the dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   area(guard.Protected),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, noSession := cmd.Annotations[annotationNoSession]
			// Built-in commands (help, completion) carry no area.
			if _, ok := cmd.Annotations[annotationArea]; !ok {
				noSession = true
			}
			a, err := buildApp(cmd, d, f, !noSession)
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(cmd.Context(), a))
			if noSession {
				return nil
			}

			_, _ = withSpinner(a.errOut, "Checking auth...", func() (session.State, error) {
				return a.sess.Restore(cmd.Context()), nil
			})
			return applyGuard(cmd, a, guard.ParseArea(cmd.Annotations[annotationArea]))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), appFrom(cmd))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.apiURL, "api-url", "", "SmartEco API base URL (env SMARTECO_API_URL)")
	pf.StringVar(&f.tokenStore, "token-store", "", fmt.Sprintf("where to keep the session token: %s, %s, %s or %s (env SMARTECO_TOKEN_STORE)",
		config.StoreKeyring, config.StoreFile, config.StoreRedis, config.StoreMemory))
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newDashboardCmd(),
		newProfileCmd(),
		newTripsCmd(),
		newGraphCmd(),
		newModesCmd(),
		newAddressCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

// applyGuard enforces the command's area once the session is restored.
func applyGuard(cmd *cobra.Command, a *app, ar guard.Area) error {
	d := guard.Decide(ar, a.sess.Snapshot())
	a.log.Debug("route guard", "command", cmd.Name(), "area", string(ar), "action", d.Action.String())

	switch d.Action {
	case guard.Redirect:
		switch d.Target {
		case guard.RouteLogin:
			if !a.prompt.Interactive() {
				printNotLoggedIn(a)
				return errNotLoggedIn
			}
			fmt.Fprintln(a.out, "🔒 Please log in to continue.")
			if st := loginInteractive(cmd.Context(), a, ""); !st.LoggedIn {
				return errPresented
			}
		case guard.RouteDashboard:
			fmt.Fprintln(a.out, "✅ Already logged in.")
		}
		if err := runDashboard(cmd.Context(), a); err != nil {
			return err
		}
		return errRedirected
	case guard.ShowLoading:
		// Restore has completed by now; a loading state here means it never ran.
		return errors.New("session is still loading")
	default:
		return nil
	}
}

func printNotLoggedIn(a *app) {
	pterm.Warning.WithWriter(a.errOut).Println("You're not logged in.")
	fmt.Fprintln(a.errOut, "   Run 'smarteco login' or 'smarteco register' to get started.")
}

// Execute runs the CLI and exits with its status code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], Deps{})
	stop()
	os.Exit(code)
}

// run executes args and returns the process exit code.
func run(ctx context.Context, args []string, d Deps) int {
	root := NewRootCmd(d)
	root.SetArgs(args)
	return execute(ctx, root)
}

// execute runs root and presents its error.
func execute(ctx context.Context, root *cobra.Command) int {
	cmd, err := root.ExecuteContextC(ctx)
	a := appFrom(cmd)
	if a != nil {
		defer a.close()
	}
	if err == nil || errors.Is(err, errRedirected) {
		return 0
	}

	host := ""
	if a != nil {
		host = httperrors.ExtractHostFromURL(a.cfg.APIURL)
	}
	present(root.ErrOrStderr(), host, err)
	return 1
}
