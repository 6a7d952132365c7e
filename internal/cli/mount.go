package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/roach88/triplog/internal/geocode"
	"github.com/roach88/triplog/internal/geolocate"
	"github.com/roach88/triplog/internal/journal"
	"github.com/roach88/triplog/internal/position"
	"github.com/roach88/triplog/internal/remote"
	"github.com/roach88/triplog/internal/session"
)

// closers runs cleanups in reverse order.
type closers []func() error

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *RootOptions) httpClient() *http.Client {
	return &http.Client{Timeout: o.Config.Timeout}
}

// mountSession wires a session from the loaded config and performs the
// initial collection load.
//
// The returned release func unmounts the session and closes everything that
// was opened for it. It is non-nil whenever the session is, including when
// the initial load failed; that error is returned alongside.
func (o *RootOptions) mountSession(ctx context.Context) (*session.Session, func(), error) {
	var cs closers

	deps := session.Deps{
		Collection: remote.New(o.Config.APIURL,
			remote.WithHTTPClient(o.httpClient()),
			remote.WithLogger(o.Logger)),
		Logger: o.Logger,
		Tokens: o.Tokens,
	}

	if o.Config.Journal != "" {
		j, err := journal.Open(o.Config.Journal)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		cs = append(cs, j.Close)
		deps.Journal = j
	}

	loc, closeLoc, err := o.locator()
	if err != nil {
		_ = cs.close()
		return nil, nil, err
	}
	cs = append(cs, closeLoc)
	deps.Locator = loc

	sess, err := session.Mount(ctx, deps)
	release := func() {
		sess.Unmount()
		if cerr := cs.close(); cerr != nil {
			o.Logger.Warn("release session", "error", cerr)
		}
	}
	return sess, release, err
}

// locator picks the host position source: a fixed home position, a GeoIP
// database lookup, or none.
func (o *RootOptions) locator() (position.Locator, func() error, error) {
	noop := func() error { return nil }

	switch {
	case o.Config.Home != "":
		home, err := o.Config.HomePosition()
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "invalid home position", err)
		}
		return geolocate.Static{Position: home}, noop, nil
	case o.Config.GeoIPDB != "":
		mm, err := geolocate.OpenMaxMind(o.Config.GeoIPDB, o.Config.PublicIP)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open geoip database", err)
		}
		return mm, mm.Close, nil
	default:
		return geolocate.Unsupported{}, noop, nil
	}
}

// geocoder builds the reverse-geocoding client. Responses are cached in
// Redis when an address is configured, otherwise in memory.
func (o *RootOptions) geocoder(ctx context.Context, baseURL string) (*geocode.Client, func() error, error) {
	if baseURL == "" {
		baseURL = o.Config.GeocodeURL
	}
	opts := []geocode.Option{
		geocode.WithHTTPClient(o.httpClient()),
		geocode.WithLogger(o.Logger),
	}

	release := func() error { return nil }
	if o.Config.RedisAddr != "" {
		rdb, err := geocode.DialRedis(ctx, o.Config.RedisAddr, o.Config.RedisDB)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to connect to redis", err)
		}
		opts = append(opts, geocode.WithCache(geocode.NewRedisCache(rdb, o.Config.CacheTTL)))
		release = rdb.Close
	} else {
		opts = append(opts, geocode.WithCache(geocode.NewMemoryCache()))
	}
	return geocode.New(baseURL, opts...), release, nil
}
