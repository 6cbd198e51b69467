package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/lborres/lumore"
	"github.com/lborres/lumore/core"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"signup", "create an account", runSignup},
	{"login", "sign in with username or email", runLogin},
	{"google-login", "sign in with Google through the browser", runGoogleLogin},
	{"set-password", "set a password for the signed-in account", runSetPassword},
	{"check-username", "check whether a username is free", runCheckUsername},
	{"whoami", "show the stored session", runWhoami},
	{"profile", "show a profile", runProfile},
	{"update-profile", "update profile fields", runUpdateProfile},
	{"visibility", "set who can see a profile field", runVisibility},
	{"preferences", "update matching preferences", runPreferences},
	{"delete-account", "delete the signed-in account", runDeleteAccount},
	{"logout", "forget the stored session", runLogout},
}

// app carries what every subcommand needs
type app struct {
	lumore   *lumore.Lumore
	settings *lumore.Settings
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return exitUsage
	}

	cmd, ok := findCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	settings, err := lumore.LoadConfig()
	if err != nil {
		printError(stderr, err)
		return exitError
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: settings.LogLevel}))

	store, closeStore, err := settings.OpenStore(ctx)
	if err != nil {
		printError(stderr, err)
		return exitError
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Warn("failed to close session store", slog.Any("error", err))
		}
	}()

	l, err := lumore.New(settings.Config(store, logger))
	if err != nil {
		printError(stderr, err)
		return exitError
	}

	a := &app{
		lumore:   l,
		settings: settings,
		logger:   logger,
		stdout:   stdout,
		stderr:   stderr,
	}
	if err := cmd.run(ctx, a, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		printError(stderr, err)
		return exitError
	}
	return exitOK
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: lumore <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "configuration is read from LUMORE_* environment variables and ./.env")
}

// printError writes err for a person. Validation failures list one field per line.
func printError(w io.Writer, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(w, "error: invalid input")
		fields := make([]string, 0, len(verr.Fields))
		for field := range verr.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(w, "  %s: %s\n", field, verr.Fields[field])
		}
		return
	}
	fmt.Fprintln(w, "error:", strings.TrimSpace(err.Error()))
}
