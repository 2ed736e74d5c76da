package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/keithlinneman/rentwise-web/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names when reading the environment.
const EnvPrefix = "RENTWISE_"

type App struct {
	LogJSON         bool
	LogLevel        string
	StacktraceLevel string
	ErrorLinks      bool
	MaxErrorLinks   int

	HTTPPort          int
	AdminPort         int
	TrustedProxyHops  int
	ShutdownDrain     time.Duration
	EnablePprof       bool
	EnablePyroscope   bool
	EnableTracing     bool
	PyroServer        string
	PyroTenantID      string
	OTLPEndpoint      string
	TraceSample       float64
	RateLimitRPS      float64
	RateLimitBurst    int
	RateLimitCapacity int

	CMSSpaceID               string
	CMSEnvironment           string
	CMSDeliveryToken         string
	CMSPreviewToken          string
	CMSDeliveryTokenSSMParam string
	CMSPreviewTokenSSMParam  string
	CMSTimeout               time.Duration

	ListingsCount     int
	ListingsSeed      int64
	ListingsFile      string
	EnableFeedUpdates bool
	FeedSSMParam      string
	FeedS3Bucket      string
	FeedS3Prefix      string
	FeedSigningKeyARN string
	FeedPollInterval  time.Duration
}

// Register binds all config fields to the given FlagSet with defaults inline.
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.ErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 1, "number of trusted reverse proxies in front of the site listener (0..5)")
	fs.DurationVar(&c.ShutdownDrain, "shutdown-drain", 5*time.Second, "time to report not-ready before closing listeners")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.Float64Var(&c.RateLimitRPS, "ratelimit-rps", 10, "per client ip sustained requests per second")
	fs.IntVar(&c.RateLimitBurst, "ratelimit-burst", 40, "per client ip burst size")
	fs.IntVar(&c.RateLimitCapacity, "ratelimit-capacity", 50000, "max tracked client ips")

	fs.StringVar(&c.CMSSpaceID, "cms-space-id", "", "CMS space id (blank disables the CMS and serves fallback content)")
	fs.StringVar(&c.CMSEnvironment, "cms-environment", "master", "CMS environment")
	fs.StringVar(&c.CMSDeliveryToken, "cms-delivery-token", "", "CMS delivery (published content) token")
	fs.StringVar(&c.CMSPreviewToken, "cms-preview-token", "", "CMS preview (draft content) token")
	fs.StringVar(&c.CMSDeliveryTokenSSMParam, "cms-delivery-token-ssm-param", "", "SSM SecureString holding the delivery token")
	fs.StringVar(&c.CMSPreviewTokenSSMParam, "cms-preview-token-ssm-param", "", "SSM SecureString holding the preview token")
	fs.DurationVar(&c.CMSTimeout, "cms-timeout", 4*time.Second, "per request CMS timeout")

	fs.IntVar(&c.ListingsCount, "listings-count", 25, "number of generated listings when no feed is available")
	fs.Int64Var(&c.ListingsSeed, "listings-seed", 0, "seed for generated listings (0 = time based)")
	fs.StringVar(&c.ListingsFile, "listings-file", "", "local listing feed file, reloaded on change")
	fs.BoolVar(&c.EnableFeedUpdates, "enable-feed-updates", false, "Enable refreshing the listing feed from S3/SSM")
	fs.StringVar(&c.FeedSSMParam, "feed-ssm-param", "/app/rentwise-web/listings/feed/current", "ssm parameter holding the current feed hash")
	fs.StringVar(&c.FeedS3Bucket, "feed-s3-bucket", "", "s3 bucket holding listing feeds")
	fs.StringVar(&c.FeedS3Prefix, "feed-s3-prefix", "apps/rentwise-web/listings/feeds", "s3 prefix (key) for listing feeds")
	fs.StringVar(&c.FeedSigningKeyARN, "feed-signing-key-arn", "", "KMS key ARN for listing feed signature verification")
	fs.DurationVar(&c.FeedPollInterval, "feed-poll-interval", 30*time.Second, "listing feed poll interval")
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value overrides env %s", f.Name, key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

func EnvKey(prefix, flagName string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// CMSConfigured mirrors the content store predicate: a space id and a
// delivery token must both be present.
func (c App) CMSConfigured() bool {
	return c.CMSSpaceID != "" && c.CMSDeliveryToken != ""
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}
	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 5 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..5 (got %d)", c.TrustedProxyHops))
	}
	if c.ShutdownDrain < 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_DRAIN must not be negative"))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.ErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}
	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATELIMIT_RPS must be > 0 (got %g)", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATELIMIT_BURST must be >= 1 (got %d)", c.RateLimitBurst))
	}
	if c.RateLimitCapacity < 1 {
		errs = append(errs, fmt.Errorf("RATELIMIT_CAPACITY must be >= 1 (got %d)", c.RateLimitCapacity))
	}

	if c.CMSEnvironment == "" {
		errs = append(errs, fmt.Errorf("CMS_ENVIRONMENT must not be empty"))
	}
	if c.CMSTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CMS_TIMEOUT must be > 0"))
	}

	if c.ListingsCount < 0 || c.ListingsCount > 10000 {
		errs = append(errs, fmt.Errorf("LISTINGS_COUNT must be 0..10000 (got %d)", c.ListingsCount))
	}
	if c.EnableFeedUpdates {
		if c.FeedSSMParam == "" {
			errs = append(errs, fmt.Errorf("FEED_SSM_PARAM is required when ENABLE_FEED_UPDATES=true"))
		}
		if c.FeedS3Bucket == "" {
			errs = append(errs, fmt.Errorf("FEED_S3_BUCKET is required when ENABLE_FEED_UPDATES=true"))
		}
		if c.FeedS3Prefix == "" {
			errs = append(errs, fmt.Errorf("FEED_S3_PREFIX is required when ENABLE_FEED_UPDATES=true"))
		}
		if c.FeedPollInterval < time.Second {
			errs = append(errs, fmt.Errorf("FEED_POLL_INTERVAL must be >= 1s (got %s)", c.FeedPollInterval))
		}
	}

	return errors.Join(errs...)
}
