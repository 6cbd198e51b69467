package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lborres/lumore"
	"github.com/lborres/lumore/core"
	"github.com/lborres/lumore/services"
)

const defaultGoogleLoginTimeout = 5 * time.Minute

// errUsage means the flag set already reported the problem
var errUsage = errors.New("usage")

var errConfirmationRequired = errors.New("refusing to delete the account without -yes")

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("lumore "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// visited returns the names of the flags set on the command line
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) signedIn(s *core.Session) {
	fmt.Fprintf(a.stdout, "signed in as %s <%s>\n", s.User.Username, s.User.Email)
}

// ============================================
// AUTH
// ============================================

func runSignup(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "signup")
	username := fs.String("username", "", "username (letters, numbers, _ and single dots)")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password, at least 6 characters")
	if err := parse(fs, args); err != nil {
		return err
	}

	form := a.lumore.NewSignupForm(lumore.SignupOptions{
		Locator:   staticLocator{settings: a.settings},
		Notifier:  &printNotifier{w: a.stderr},
		Navigator: logNavigator{logger: a.logger},
	})
	defer form.Close()
	for field, value := range map[services.SignupField]string{
		services.FieldUsername: *username,
		services.FieldEmail:    *email,
		services.FieldPassword: *password,
	} {
		if err := form.SetField(field, value); err != nil {
			return err
		}
	}

	session, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	a.signedIn(session)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	identifier := fs.String("id", "", "username or email")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	session, err := a.lumore.Auth.Login(ctx, core.LoginInput{
		Identifier: *identifier,
		Password:   *password,
	})
	if err != nil {
		return err
	}
	a.signedIn(session)
	return nil
}

func runGoogleLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "google-login")
	timeout := fs.Duration("timeout", defaultGoogleLoginTimeout, "how long to wait for the browser")
	if err := parse(fs, args); err != nil {
		return err
	}

	receiver, err := a.lumore.NewCallbackReceiver()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := receiver.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("callback receiver shutdown failed", slog.Any("error", err))
		}
	}()

	authURL, err := a.lumore.GoogleLoginURL(receiver)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "open this URL in your browser to continue with Google:")
	fmt.Fprintln(a.stdout, "  "+authURL)

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	session, err := receiver.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("google sign-in did not complete: %w", err)
	}
	a.signedIn(session)
	return nil
}

func runSetPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "set-password")
	password := fs.String("password", "", "new password, at least 6 characters")
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.lumore.Auth.SetPassword(ctx, core.SetPasswordInput{NewPassword: *password}); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "password updated")
	return nil
}

func runCheckUsername(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "check-username")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "usage: lumore check-username <username>")
		return errUsage
	}

	username := fs.Arg(0)
	free, err := a.lumore.Auth.CheckUsername(ctx, username)
	if err != nil {
		return err
	}
	if free {
		fmt.Fprintf(a.stdout, "%s is available\n", username)
	} else {
		fmt.Fprintf(a.stdout, "%s is taken\n", username)
	}
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "whoami")
	if err := parse(fs, args); err != nil {
		return err
	}

	session, err := a.lumore.Sessions.Current(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s <%s> id=%s\n", session.User.Username, session.User.Email, session.User.ID)
	if !session.ExpiresAt.IsZero() {
		fmt.Fprintf(a.stdout, "session expires %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "logout")
	if err := parse(fs, args); err != nil {
		return err
	}

	return a.lumore.Auth.Logout(ctx, func() {
		fmt.Fprintln(a.stdout, "signed out")
	})
}

// ============================================
// PROFILE
// ============================================

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "profile")
	userID := fs.String("user", "", "user id, defaults to the signed-in user")
	if err := parse(fs, args); err != nil {
		return err
	}

	view := a.lumore.NewProfileView()
	profile, err := view.Load(ctx, *userID)
	if err != nil {
		return fmt.Errorf("%s: %w", view.Message(), err)
	}
	return a.printJSON(profile)
}

func runUpdateProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "update-profile")
	name := fs.String("name", "", "display name")
	bio := fs.String("bio", "", "bio")
	dob := fs.String("dob", "", "date of birth, yyyy-mm-dd")
	gender := fs.String("gender", "", "gender")
	occupation := fs.String("occupation", "", "occupation")
	interests := fs.String("interests", "", "comma separated interests")
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	address := fs.String("address", "", "formatted address for -lat/-lon")
	if err := parse(fs, args); err != nil {
		return err
	}

	set := visited(fs)
	var update core.ProfileUpdate
	if set["name"] {
		update.Name = name
	}
	if set["bio"] {
		update.Bio = bio
	}
	if set["dob"] {
		field := a.lumore.NewDateField("Date of birth", nil)
		if err := field.Sync(*dob); err != nil {
			return err
		}
		value := field.Value()
		update.DateOfBirth = &value
	}
	if set["gender"] {
		update.Gender = gender
	}
	if set["occupation"] {
		update.Occupation = occupation
	}
	if set["interests"] {
		update.Interests = splitList(*interests)
	}
	if set["lat"] || set["lon"] {
		loc := core.NewPoint(core.Coordinates{Longitude: *lon, Latitude: *lat}, *address)
		update.Location = &loc
	}

	profile, err := a.lumore.Profiles.Update(ctx, update)
	if err != nil {
		return err
	}
	return a.printJSON(profile)
}

func runVisibility(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "visibility")
	userID := fs.String("user", "", "user id, defaults to the signed-in user")
	field := fs.String("field", "", "profile field name")
	level := fs.String("level", "", "public, matches or private")
	if err := parse(fs, args); err != nil {
		return err
	}

	profile, err := a.lumore.Profiles.UpdateVisibility(ctx, *userID, *field, core.Visibility(*level))
	if err != nil {
		return err
	}
	return a.printJSON(profile)
}

func runPreferences(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "preferences")
	minAge := fs.Int("min-age", core.MinimumAge, "youngest age to match")
	maxAge := fs.Int("max-age", 0, "oldest age to match")
	distance := fs.Float64("max-distance", 0, "maximum distance in km")
	interestedIn := fs.String("interested-in", "", "comma separated genders")
	showMe := fs.Bool("show-me", true, "show me to others")
	if err := parse(fs, args); err != nil {
		return err
	}

	set := visited(fs)
	var update core.PreferencesUpdate
	if set["min-age"] || set["max-age"] {
		update.AgeRange = &core.AgeRange{Min: *minAge, Max: *maxAge}
	}
	if set["max-distance"] {
		update.MaxDistanceKm = distance
	}
	if set["interested-in"] {
		update.InterestedIn = splitList(*interestedIn)
	}
	if set["show-me"] {
		update.ShowMe = showMe
	}

	profile, err := a.lumore.Profiles.UpdatePreferences(ctx, update)
	if err != nil {
		return err
	}
	return a.printJSON(profile)
}

func runDeleteAccount(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "delete-account")
	yes := fs.Bool("yes", false, "confirm deletion")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		return errConfirmationRequired
	}

	if err := a.lumore.Profiles.DeleteAccount(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "account deleted")
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
