package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/rentwise-web/internal/cfg"
	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/fallback"
	"github.com/keithlinneman/rentwise-web/internal/health"
	"github.com/keithlinneman/rentwise-web/internal/httpmw"
	"github.com/keithlinneman/rentwise-web/internal/httpserver"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/listingshttp"
	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/metrics"
	"github.com/keithlinneman/rentwise-web/internal/opshttp"
	"github.com/keithlinneman/rentwise-web/internal/otelx"
	"github.com/keithlinneman/rentwise-web/internal/prof"
	"github.com/keithlinneman/rentwise-web/internal/ratelimit"
	"github.com/keithlinneman/rentwise-web/internal/sitehandler"
	v "github.com/keithlinneman/rentwise-web/internal/version"
	"github.com/keithlinneman/rentwise-web/internal/webassets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	var envFile string

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.StringVar(&envFile, "env-file", ".env", "optional KEY=VALUE file loaded before reading the environment")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		os.Exit(0)
	}

	// .env never overrides variables already exported
	if err := cfg.LoadEnvFile(envFile); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:             vi.AppName,
		Version:         vi.Version,
		Commit:          vi.Commit,
		Level:           lvl,
		StacktraceLevel: stackLvl,
		JSON:            conf.LogJSON,
		ErrorLinks:      conf.ErrorLinks,
		MaxErrorLinks:   conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"trace_sample", conf.TraceSample,
		"cms_space_id", conf.CMSSpaceID,
		"cms_environment", conf.CMSEnvironment,
		"listings_file", conf.ListingsFile,
		"enable_feed_updates", conf.EnableFeedUpdates,
		"feed_ssm_param", conf.FeedSSMParam,
		"feed_s3_bucket", conf.FeedS3Bucket,
		"feed_s3_prefix", conf.FeedS3Prefix,
		"feed_signing_key_arn", conf.FeedSigningKeyARN,
	)

	m := metrics.New()
	m.SetBuildInfo("server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       vi.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	// collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   vi.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	defaults, err := fallback.Load()
	if err != nil {
		L.Error(ctx, err, "embedded fallback content is invalid")
		os.Exit(1)
	}

	// aws is only needed for SSM tokens and the S3 feed
	var awsCfg *aws.Config
	if needsAWS(conf) {
		c, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			L.Error(ctx, err, "failed to load AWS config")
			os.Exit(1)
		}
		awsCfg = &c
	}

	cmsClient := newCMSClient(ctx, L, conf, awsCfg, m)
	m.SetCMSConfigured(cmsClient.Configured())
	if cmsClient.Configured() {
		L.Info(ctx, "cms configured", "preview_available", cmsClient.PreviewAvailable())
	} else {
		L.Info(ctx, "cms not configured, serving built-in content")
	}

	store := listings.NewStore()
	if err := startListings(ctx, L, conf, awsCfg, store, m); err != nil {
		L.Error(ctx, err, "failed to initialize listings")
		os.Exit(1)
	}

	site, err := sitehandler.New(&sitehandler.Options{
		Logger:      L,
		CMS:         cmsClient,
		Listings:    store,
		Defaults:    defaults,
		Metrics:     m,
		TemplatesFS: webassets.TemplatesFS(),
		StaticFS:    webassets.StaticFS(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}
	api := listingshttp.NewAPI(store, defaults, L)

	var gate health.Gate
	readiness := health.All(
		gate.Probe(),
		health.Named("listings", health.Ready(store)),
	)

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		ratelimit.WithCapacity(conf.RateLimitCapacity),
		ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
		// logged once per visitor until it is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:        L,
		Port:          conf.HTTPPort,
		UseRecoverMW:  true,
		OnPanic:       m.IncHttpPanic,
		MetricsMW:     m.Middleware,
		RateLimitMW:   limiter.Middleware,
		ClientIPOpts:  httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		Health:        health.OK(),
		Readiness:     readiness,
		ListingsInfo:  store,
		CMSConfigured: cmsClient.Configured(),
		APIRoutes:     api.RegisterRoutes,
		SiteRoutes:    site.RegisterRoutes,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// ops listener rejects public peers and forwarded requests itself, the
	// security group is the first line
	opsHTTPStop, err := opshttp.Start(ctx, opshttp.Options{
		Port:         conf.AdminPort,
		Logger:       L,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.OK(),
		Readiness:    readiness,
		Info:         infoHandler(vi, store, cmsClient),
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	// fail readiness first so the load balancer stops sending new requests
	gate.Close("draining")
	L.Info(bg, "readiness gate closed, draining", "drain", conf.ShutdownDrain)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.ShutdownDrain):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

func needsAWS(c cfg.App) bool {
	return c.EnableFeedUpdates ||
		c.CMSDeliveryTokenSSMParam != "" ||
		c.CMSPreviewTokenSSMParam != ""
}

// newCMSClient never fails: a client without credentials serves every page
// from the built-in defaults.
func newCMSClient(ctx context.Context, L log.Logger, c cfg.App, awsCfg *aws.Config, obs cms.Observer) *cms.Client {
	opts := cms.Options{
		SpaceID:       c.CMSSpaceID,
		Environment:   c.CMSEnvironment,
		DeliveryToken: c.CMSDeliveryToken,
		PreviewToken:  c.CMSPreviewToken,
		UserAgent:     v.AppName + "/" + v.Version,
		HTTPClient:    otelx.HTTPClient(c.CMSTimeout),
		Logger:        L.With("component", "cms"),
		Observer:      obs,
	}
	if awsCfg != nil {
		err := cms.LoadTokens(ctx, ssm.NewFromConfig(*awsCfg), cms.TokenParams{
			Delivery: c.CMSDeliveryTokenSSMParam,
			Preview:  c.CMSPreviewTokenSSMParam,
		}, &opts)
		if err != nil {
			L.Error(ctx, err, "failed to load cms tokens from ssm, continuing with configured values")
		}
	}
	return cms.NewClient(opts)
}

// startListings fills store from, in order of preference, the S3 feed, a
// local feed file, or the generator. Background reloaders stop with ctx.
func startListings(ctx context.Context, L log.Logger, c cfg.App, awsCfg *aws.Config, store *listings.Store, m *metrics.ServerMetrics) error {
	onSwap := func(snap *listings.Snapshot) { m.SetListings(snap) }

	if c.EnableFeedUpdates && awsCfg != nil {
		var verifier listings.Verifier
		if c.FeedSigningKeyARN != "" {
			verifier = cryptoutil.NewKMSVerifier(kms.NewFromConfig(*awsCfg), c.FeedSigningKeyARN)
		}
		loader, err := listings.NewLoader(listings.LoaderOptions{
			Logger:    L.With("component", "feed"),
			SSMParam:  c.FeedSSMParam,
			S3Bucket:  c.FeedS3Bucket,
			S3Prefix:  c.FeedS3Prefix,
			SSMClient: ssm.NewFromConfig(*awsCfg),
			S3Client:  s3.NewFromConfig(*awsCfg),
			Verifier:  verifier,
		})
		if err != nil {
			return err
		}
		if err := loader.LoadIntoStore(ctx, store); err != nil {
			// the watcher keeps retrying; serve generated listings meanwhile
			L.Error(ctx, err, "initial feed load failed, serving generated listings until the watcher succeeds")
			store.Set(listings.GeneratedSnapshot(c.ListingsCount, c.ListingsSeed, time.Now()))
		}
		m.SetListings(currentSnapshot(store))

		w := listings.NewWatcher(listings.WatcherOptions{
			Logger:       L.With("component", "feed-watcher"),
			Loader:       loader,
			Store:        store,
			PollInterval: c.FeedPollInterval,
			Metrics:      m,
			OnSwap:       onSwap,
		})
		go func() { _ = w.Run(ctx) }()
		return nil
	}

	if c.ListingsFile != "" {
		snap, err := listings.LoadFile(c.ListingsFile, listings.DefaultValidationOptions())
		if err != nil {
			return err
		}
		store.Set(*snap)
		m.SetListings(currentSnapshot(store))
		L.Info(ctx, "loaded listings file", "path", c.ListingsFile, "listings", snap.Catalog.Len())

		fw := &listings.FileWatcher{
			Path:   c.ListingsFile,
			Store:  store,
			Logger: L.With("component", "feed-file"),
			OnSwap: onSwap,
		}
		go func() {
			if err := fw.Run(ctx); err != nil {
				L.Error(ctx, err, "listings file watcher stopped")
			}
		}()
		return nil
	}

	seed := c.ListingsSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	store.Set(listings.GeneratedSnapshot(c.ListingsCount, seed, time.Now()))
	m.SetListings(currentSnapshot(store))
	L.Info(ctx, "serving generated listings", "listings", c.ListingsCount, "seed", seed)
	return nil
}

func currentSnapshot(st *listings.Store) *listings.Snapshot {
	snap, _ := st.Get()
	return snap
}

func notifySystemd() error {
	// NOTIFY_SOCKET is set when started under systemd with Type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		_ = conn.Close()
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return conn.Close()
}
