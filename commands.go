package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/danielmmetz/hn-feed/api"
	"github.com/danielmmetz/hn-feed/feed"
	"github.com/danielmmetz/hn-feed/hn"
	"github.com/danielmmetz/hn-feed/readability"
	"github.com/danielmmetz/hn-feed/sse"
	"github.com/danielmmetz/hn-feed/worker"
)

func newTopCommand(cfg *config) *ffcli.Command {
	fs := flag.NewFlagSet("hn-feed top", flag.ContinueOnError)
	orderName := fs.String("order", "rank", "order: rank, time, score or hot")
	asJSON := fs.Bool("json", false, "print JSON")

	return &ffcli.Command{
		Name:       "top",
		ShortUsage: "hn-feed top [-order rank|time|score|hot] [-json]",
		ShortHelp:  "Load the configured feed and print its stories",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, _ []string) error {
			if err := cfg.setup(); err != nil {
				return err
			}
			order, err := feed.ParseOrder(*orderName)
			if err != nil {
				return err
			}
			model, _, err := cfg.model(nil)
			if err != nil {
				return err
			}
			res, err := model.LoadTopStories(ctx)
			if err != nil {
				return err
			}
			stories := feed.Sort(res.Items, order, time.Now())
			if *asJSON {
				return printJSON(cfg.out, stories)
			}
			for i, s := range stories {
				fmt.Fprintf(cfg.out, "%3d. %s\n", i+1, s.Title)
				fmt.Fprintf(cfg.out, "     %d points by %s %s | %d comments | id %d\n",
					s.Score, s.By, ago(s.Created()), s.Descendants, s.ID)
			}
			if len(res.Failed) > 0 {
				fmt.Fprintf(cfg.out, "(%d of %d stories could not be fetched)\n", len(res.Failed), len(res.IDs))
			}
			return nil
		},
	}
}

func newCommentsCommand(cfg *config) *ffcli.Command {
	fs := flag.NewFlagSet("hn-feed comments", flag.ContinueOnError)
	depth := fs.Int("depth", 0, "levels of replies below the top-level comments (-1 for all)")
	orderName := fs.String("order", "time", "order of top-level comments: rank, time, score or hot")
	asJSON := fs.Bool("json", false, "print JSON")

	return &ffcli.Command{
		Name:       "comments",
		ShortUsage: "hn-feed comments [-depth N] [-order ...] [-json] <story-id>",
		ShortHelp:  "Print the comments of a story",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, args []string) error {
			if err := cfg.setup(); err != nil {
				return err
			}
			id, err := storyIDArg(args)
			if err != nil {
				return err
			}
			order, err := feed.ParseOrder(*orderName)
			if err != nil {
				return err
			}
			model, client, err := cfg.model(nil)
			if err != nil {
				return err
			}
			story, err := client.GetItem(ctx, id)
			if err != nil {
				return err
			}

			if *depth != 0 {
				th := model.Thread(ctx, story, *depth)
				if *asJSON {
					return printJSON(cfg.out, th)
				}
				fmt.Fprintf(cfg.out, "%s (%d comments)\n\n", story.Title, th.Count())
				printNodes(cfg.out, th.Roots, 0)
				return nil
			}

			res := model.LoadComments(ctx, story)
			comments := feed.Sort(res.Items, order, time.Now())
			if *asJSON {
				return printJSON(cfg.out, comments)
			}
			fmt.Fprintf(cfg.out, "%s (%d comments)\n\n", story.Title, len(comments))
			for _, c := range comments {
				printComment(cfg.out, c, 0)
			}
			if len(res.Failed) > 0 {
				fmt.Fprintf(cfg.out, "(%d comments could not be fetched)\n", len(res.Failed))
			}
			return nil
		},
	}
}

func newUserCommand(cfg *config) *ffcli.Command {
	fs := flag.NewFlagSet("hn-feed user", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")

	return &ffcli.Command{
		Name:       "user",
		ShortUsage: "hn-feed user [-json] <name>",
		ShortHelp:  "Print a user profile",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, args []string) error {
			if err := cfg.setup(); err != nil {
				return err
			}
			if len(args) != 1 {
				return errors.New("user: exactly one name is required")
			}
			u, err := cfg.client().GetUser(ctx, args[0])
			if err != nil {
				return err
			}
			if *asJSON {
				return printJSON(cfg.out, u)
			}
			fmt.Fprintf(cfg.out, "%s\n  karma:     %d\n  created:   %s\n  submitted: %d\n",
				u.ID, u.Karma, time.Unix(u.Created, 0).UTC().Format(time.DateOnly), len(u.Submitted))
			if about := (&hn.Item{Text: u.About}).PlainText(); about != "" {
				fmt.Fprintf(cfg.out, "\n%s\n", about)
			}
			return nil
		},
	}
}

func newArticleCommand(cfg *config) *ffcli.Command {
	fs := flag.NewFlagSet("hn-feed article", flag.ContinueOnError)

	return &ffcli.Command{
		Name:       "article",
		ShortUsage: "hn-feed article <story-id>",
		ShortHelp:  "Print the reader-mode text of the page a story links to",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, args []string) error {
			if err := cfg.setup(); err != nil {
				return err
			}
			id, err := storyIDArg(args)
			if err != nil {
				return err
			}
			story, err := cfg.client().GetItem(ctx, id)
			if err != nil {
				return err
			}
			if story.URL == "" {
				return fmt.Errorf("story %d has no URL", id)
			}
			a, err := readability.NewExtractor(nil).Extract(ctx, story.URL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cfg.out, "%s\n%s\n\n%s\n", a.Title, a.URL, a.Text)
			return nil
		},
	}
}

func newServeCommand(cfg *config) *ffcli.Command {
	fs := flag.NewFlagSet("hn-feed serve", flag.ContinueOnError)
	addr := fs.String("addr", "localhost", "address to listen on")
	port := fs.Int("port", 8080, "port to listen on")
	pollInterval := fs.Duration("poll-interval", 5*time.Minute, "feed reload interval (0 disables polling)")
	refreshWindow := fs.Duration("refresh-window", 30*time.Second, "minimum time between manual refreshes")

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "hn-feed serve [-addr host] [-port N] [-poll-interval d]",
		ShortHelp:  "Serve the feed as JSON with live Server-Sent Events",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, _ []string) error {
			if err := cfg.setup(); err != nil {
				return err
			}

			broker := sse.NewBroker(1000)
			model, _, err := cfg.model(feed.Publishers{broker, cfg.metrics})
			if err != nil {
				return err
			}

			workerCtx, workerCancel := context.WithCancel(ctx)
			defer workerCancel()
			worker.NewPoller(model, *pollInterval).Start(workerCtx)

			handler := api.NewHandler(api.Deps{
				Model:         model,
				Broker:        broker,
				Extractor:     readability.NewExtractor(nil),
				Metrics:       cfg.metrics.Handler(),
				RefreshWindow: *refreshWindow,
			})

			listenAddr := fmt.Sprintf("%s:%d", *addr, *port)
			srv := &http.Server{
				Addr:    listenAddr,
				Handler: handler,
			}

			errc := make(chan error, 1)
			go func() {
				slog.Info("server starting", "addr", listenAddr, "feed", model.Feed())
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				slog.Info("received signal, shutting down")
			}

			workerCancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("server shutdown error", "error", err)
			}

			slog.Info("server stopped")
			return nil
		},
	}
}

func storyIDArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("exactly one story id is required")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid story id %q", args[0])
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printNodes(w io.Writer, nodes []*feed.Node, level int) {
	for _, n := range nodes {
		printComment(w, n.Item, level)
		printNodes(w, n.Replies, level+1)
	}
}

func printComment(w io.Writer, c *hn.Item, level int) {
	indent := strings.Repeat("  ", level)
	if c.Deleted || c.Dead {
		fmt.Fprintf(w, "%s[deleted]\n\n", indent)
		return
	}
	fmt.Fprintf(w, "%s%s %s:\n", indent, c.By, ago(c.Created()))
	for _, line := range strings.Split(c.PlainText(), "\n") {
		fmt.Fprintf(w, "%s  %s\n", indent, line)
	}
	fmt.Fprintln(w)
}

// ago renders t relative to now in the coarse style of the HN front page.
func ago(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
