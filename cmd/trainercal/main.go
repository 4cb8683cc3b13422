package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"trainercal/internal/api"
	"trainercal/internal/calendar"
	"trainercal/internal/capture"
	"trainercal/internal/clock"
	"trainercal/internal/config"
	"trainercal/internal/ics"
	appLog "trainercal/internal/log"
	"trainercal/internal/model"
	"trainercal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	date       string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	var date clock.Date
	if flags.date != "" {
		if date, err = clock.ParseDate(flags.date); err != nil {
			appLog.Error("invalid -date", err, "date", flags.date)
			os.Exit(2)
		}
	}

	appLog.Info("trainercal starting",
		"version", version,
		"listen", conf.Listen,
		"api_base_url", conf.APIBaseURL,
		"zone", conf.Zone(),
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	client, err := api.New(conf.APIBaseURL, conf.SessionToken, api.WithCacheTTL(conf.CacheTTL()))
	if err != nil {
		appLog.Error("failed to create API client", err)
		os.Exit(1)
	}
	owner, err := client.OwnerID()
	if err != nil {
		appLog.Error("session_token must be a trainer session JWT", err)
		os.Exit(1)
	}
	appLog.Info("authenticated", "trainer_id", owner)

	svc := calendar.New(client, calendar.Options{
		Zone:           conf.Zone(),
		WeekStart:      conf.FirstWeekday(),
		DefaultMode:    conf.ViewMode(),
		ViewportHeight: conf.ViewportHeight,
		Repeat: ics.RepeatConfig{
			HorizonDays: conf.RecurrenceHorizonDays,
			MaxRepeats:  conf.MaxRecurrences,
		},
		Locations:    conf.Locations,
		CalendarName: "trainercal",
	})
	server := web.NewServer(conf, svc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.once {
		if err := runOnce(ctx, conf, svc, server, date); err != nil {
			appLog.Error("single run failed", err)
			os.Exit(1)
		}
		return
	}

	refresh := func() { runRefresh(ctx, conf, svc, date) }
	sched := cron.New(cron.WithLocation(conf.Zone().Location()))
	if _, err := sched.AddFunc(conf.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	// First refresh once the listener is up, so the capture has a page to load.
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			refresh()
		}
	}()

	if err := server.Run(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		cancel()
	}
	appLog.Info("trainercal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/trainercal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load one window (and capture it if enabled), then exit")
	flag.StringVar(&cfg.date, "date", "", "Date to show as YYYY-MM-DD (default today)")

	flag.Parse()

	return cfg
}

// runRefresh re-warms the session cache and, when enabled, re-captures
// the preview. Failures are logged; the next tick tries again.
func runRefresh(ctx context.Context, conf *config.Config, svc *calendar.Service, date clock.Date) {
	start := time.Now()
	if err := svc.Warm(ctx); err != nil {
		appLog.Error("refresh: warm failed", err)
	}
	if conf.Capture.Enabled {
		if err := runCapture(ctx, conf, date); err != nil {
			appLog.Error("refresh: capture failed", err, "output", conf.Capture.Output)
		}
	}
	appLog.Info("refresh done", "elapsed", time.Since(start).Round(time.Millisecond).String())
}

// runOnce serves just long enough to capture one snapshot. Without capture
// it loads the view and logs what it would show.
func runOnce(ctx context.Context, conf *config.Config, svc *calendar.Service, server *web.Server, date clock.Date) error {
	if !conf.Capture.Enabled {
		snap, err := svc.Load(ctx, model.ViewState{CurrentDate: date})
		if err != nil {
			return err
		}
		appLog.Info("view loaded",
			"date", snap.Grid.Date,
			"view", snap.Grid.Mode,
			"sessions", len(snap.Sessions),
			"blocks", snap.Grid.BlockCount(),
		)
		return nil
	}

	srvCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(srvCtx) }()

	// Give the listener a moment; a bind failure surfaces here.
	select {
	case err := <-errCh:
		stop()
		return err
	case <-time.After(500 * time.Millisecond):
	}

	err := runCapture(ctx, conf, date)
	stop()
	if serr := <-errCh; serr != nil && !errors.Is(serr, context.Canceled) {
		appLog.Error("HTTP server shutdown failed", serr)
	}
	if err == nil {
		appLog.Info("snapshot written", "output", conf.Capture.Output)
	}
	return err
}

func runCapture(ctx context.Context, conf *config.Config, date clock.Date) error {
	opts := capture.Options{
		URL:        calendarURL(conf.Listen, date),
		OutputPath: conf.Capture.Output,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return capture.CalendarPNG(ctx, opts)
}

// calendarURL points the capture browser at our own listener. Wildcard
// binds are reached through loopback.
func calendarURL(listen string, date clock.Date) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = "127.0.0.1", "8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/calendar"}
	if !date.IsZero() {
		u.RawQuery = url.Values{"date": {date.String()}}.Encode()
	}
	return u.String()
}
