package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"ao3harvest/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/fetch")

// ErrUnavailable is returned once every retry attempt has failed. It is the
// only failure mode of Get: callers decide whether to skip or halt, the
// fetcher itself never escalates.
var ErrUnavailable = errors.New("resource unavailable")

type Config struct {
	// Retries is the total number of attempts, not the number of retries
	// after the first. Minimum 1.
	Retries      int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Timeout      time.Duration
	UserAgent    string
}

func (c Config) withDefaults() Config {
	if c.Retries < 1 {
		c.Retries = 5
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 2 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0"
	}
	return c
}

// Result describes one completed Get, successful or not.
type Result struct {
	URL        string
	StatusCode int
	Attempts   int
	// Delay is the backoff delay as it stood when the call finished,
	// after any recovery halving.
	Delay    time.Duration
	Duration time.Duration
	Err      error
}

type Client struct {
	http *resty.Client
	cfg  Config

	// OnResult, if set, is invoked once per completed Get.
	OnResult func(ctx context.Context, r Result)

	sleep func(time.Duration)
}

func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", cfg.UserAgent)
	client.SetTimeout(cfg.Timeout)
	telemetry.InstrumentResty(client, "lib/fetch/http")

	return &Client{
		http:  client,
		cfg:   cfg,
		sleep: time.Sleep,
	}
}

// Get retrieves the url with bounded exponential backoff. The backoff delay
// starts at InitialDelay, doubles after each failed attempt up to MaxDelay,
// and is halved back toward InitialDelay when an attempt succeeds after
// earlier escalation. Delay state is local to a single call.
//
// A nil error means a usable response. ErrUnavailable (wrapped) means all
// attempts failed; no other error is returned.
func (c *Client) Get(ctx context.Context, url string) (*resty.Response, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	start := time.Now()
	delay := c.cfg.InitialDelay
	lastStatus := 0

	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		res, err := c.http.R().SetContext(ctx).Get(url)

		if err == nil && succeeded(res.StatusCode()) {
			if attempt > 1 {
				delay = rewardDelay(delay, c.cfg.InitialDelay)
			}
			c.report(ctx, Result{
				URL:        url,
				StatusCode: res.StatusCode(),
				Attempts:   attempt,
				Delay:      delay,
				Duration:   time.Since(start),
			})
			return res, nil
		}

		status := 0
		if err == nil {
			status = res.StatusCode()
		}
		lastStatus = status
		if status == http.StatusTooManyRequests {
			slog.WarnContext(ctx, "rate limited", "url", url, "attempt", attempt)
		}
		slog.WarnContext(ctx, "fetch attempt failed",
			"url", url,
			"attempt", attempt,
			"retries", c.cfg.Retries,
			"status", status,
			"err", err,
		)

		if attempt < c.cfg.Retries {
			slog.InfoContext(ctx, "retrying", "url", url, "wait", delay)
			c.sleep(delay)
			delay = nextDelay(delay, c.cfg.MaxDelay)

			if ctx.Err() != nil {
				break
			}
		}
	}

	err := fmt.Errorf("%w: %s after %d attempts", ErrUnavailable, url, c.cfg.Retries)
	slog.ErrorContext(ctx, "fetch exhausted retries", "url", url, "status", lastStatus)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.report(ctx, Result{
		URL:        url,
		StatusCode: lastStatus,
		Attempts:   c.cfg.Retries,
		Delay:      delay,
		Duration:   time.Since(start),
		Err:        err,
	})
	return nil, err
}

func (c *Client) report(ctx context.Context, r Result) {
	if c.OnResult != nil {
		c.OnResult(ctx, r)
	}
}

// redirects are already followed by the client, so anything left
// below 400 is a usable response
func succeeded(status int) bool {
	return status >= 200 && status < 400
}

// nextDelay doubles the backoff delay, capped at max.
func nextDelay(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}

// rewardDelay halves an escalated delay after a successful attempt,
// never dropping below the configured floor.
func rewardDelay(d, floor time.Duration) time.Duration {
	d /= 2
	if d < floor {
		return floor
	}
	return d
}
