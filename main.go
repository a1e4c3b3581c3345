package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/danielmmetz/hn-feed/feed"
	"github.com/danielmmetz/hn-feed/hn"
	"github.com/danielmmetz/hn-feed/metrics"
)

const envPrefix = "HN_FEED"

func main() {
	// A missing .env is fine; flags and the environment still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "hn-feed: loading .env:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(os.Stdout)
	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "hn-feed:", err)
		}
		os.Exit(1)
	}
}

// config holds the global flags shared by every subcommand.
type config struct {
	out io.Writer

	baseURL     string
	feedName    string
	maxStories  int
	concurrency int
	rps         float64
	timeout     time.Duration
	logLevel    string
	logFormat   string

	metrics *metrics.Metrics
}

func (c *config) register(fs *flag.FlagSet) {
	fs.StringVar(&c.baseURL, "base-url", hn.DefaultBaseURL, "Hacker News API base URL")
	fs.StringVar(&c.feedName, "feed", string(hn.FeedTop), "story feed: top, new, best, ask, show or job")
	fs.IntVar(&c.maxStories, "max-stories", feed.DefaultMaxStories, "number of stories to load")
	fs.IntVar(&c.concurrency, "concurrency", 10, "maximum concurrent upstream requests (<= 0 for unbounded)")
	fs.Float64Var(&c.rps, "rps", 0, "upstream requests per second (0 for unlimited)")
	fs.DurationVar(&c.timeout, "timeout", 15*time.Second, "per-request upstream timeout")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&c.logFormat, "log-format", "text", "log format: text or json")
}

// setup installs the default logger and the metrics used by the client.
func (c *config) setup() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return fmt.Errorf("invalid -log-level %q", c.logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.logFormat) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid -log-format %q", c.logFormat)
	}
	slog.SetDefault(slog.New(handler))

	c.metrics = metrics.New()
	return nil
}

func (c *config) client() *hn.Client {
	hc := &http.Client{
		Timeout:   c.timeout,
		Transport: c.metrics.InstrumentTransport(http.DefaultTransport),
	}
	opts := []hn.Option{
		hn.WithBaseURL(c.baseURL),
		hn.WithHTTPClient(hc),
		hn.WithConcurrency(c.concurrency),
	}
	if c.rps > 0 {
		opts = append(opts, hn.WithRateLimit(c.rps, max(1, c.concurrency)))
	}
	return hn.NewClient(opts...)
}

func (c *config) model(pub feed.Publisher) (*feed.Model, *hn.Client, error) {
	f, err := hn.ParseFeed(c.feedName)
	if err != nil {
		return nil, nil, err
	}
	client := c.client()
	m := feed.NewModel(client, pub, feed.Config{Feed: f, MaxStories: c.maxStories})
	return m, client, nil
}

func newRootCommand(out io.Writer) *ffcli.Command {
	cfg := &config{out: out}
	rootFlags := flag.NewFlagSet("hn-feed", flag.ContinueOnError)
	cfg.register(rootFlags)

	var root *ffcli.Command
	root = &ffcli.Command{
		Name:       "hn-feed",
		ShortUsage: "hn-feed [flags] <subcommand> [flags] [args...]",
		FlagSet:    rootFlags,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Subcommands: []*ffcli.Command{
			newTopCommand(cfg),
			newCommentsCommand(cfg),
			newUserCommand(cfg),
			newArticleCommand(cfg),
			newServeCommand(cfg),
		},
		Exec: func(context.Context, []string) error {
			fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
			return flag.ErrHelp
		},
	}
	return root
}
