package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lborres/lumore"
	"github.com/lborres/lumore/core"
)

var errNoLocation = errors.New("LUMORE_LATITUDE and LUMORE_LONGITUDE are not set")

// staticLocator reports the position configured in the environment.
// With none configured it behaves like a denied permission.
type staticLocator struct {
	settings *lumore.Settings
}

func (l staticLocator) Locate(ctx context.Context) (core.Coordinates, error) {
	if !l.settings.HasLocation {
		return core.Coordinates{}, &core.PermissionError{Permission: "geolocation", Err: errNoLocation}
	}
	return core.Coordinates{
		Longitude: l.settings.Longitude,
		Latitude:  l.settings.Latitude,
	}, nil
}

type printNotifier struct {
	w io.Writer
}

func (n *printNotifier) Notify(level core.NotifyLevel, message string) {
	prefix := "info"
	switch level {
	case core.NotifyWarning:
		prefix = "warning"
	case core.NotifyError:
		prefix = "error"
	}
	fmt.Fprintf(n.w, "%s: %s\n", prefix, message)
}

// logNavigator records where a browser would have gone next
type logNavigator struct {
	logger *slog.Logger
}

func (n logNavigator) Navigate(path string) {
	n.logger.Debug("navigate", slog.String("path", path))
}
