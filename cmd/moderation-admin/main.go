package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-moderation/internal/logger"
	"github.com/tendant/simple-moderation/pkg/moderation"
	"github.com/tendant/simple-moderation/pkg/moderation/api"
	"github.com/tendant/simple-moderation/pkg/moderation/config"
)

const usage = `Simple Moderation Admin CLI

Inspect and act on the moderation queue straight from the database.

USAGE:
  moderation-admin <command> [arguments] [options]

COMMANDS:
  queue                 List pending and rejected items, newest first
  count                 Count pending items
  published             List published content
  history <id>          Show the moderation log of an item
  approve <id>          Approve and publish an item
  reject <id>           Reject an item (requires --reason)

ENVIRONMENT VARIABLES:
  DATABASE_URL      memory, postgres://..., or sqlite://path (default: memory)
  DB_SCHEMA         PostgreSQL schema name (default: moderation)
  REDIS_URL, EVENTS_URL, SNAPSHOT_URL are honoured as in the server.

  Configuration can be loaded from a .env file in the current directory.

OPTIONS:
  --type=<type>          events or newsroom_articles (queue, count);
                         events, news or articles (published)
  --moderator=<id>       Moderator id recorded for approve/reject (default: $USER)
  --reason=<text>        Rejection reason
  --json                 Output as JSON
`

type options struct {
	contentType string
	moderator   string
	reason      string
	json        bool
	args        []string
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}
	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		fatalf("Failed to load configuration: %v", err)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Environment, cfg.LogLevel)

	ctx := context.Background()
	rt, err := cfg.BuildService(ctx, log)
	if err != nil {
		fatalf("Failed to build service: %v", err)
	}
	defer rt.Close()

	opts := parseOptions(os.Args[2:])
	if opts.moderator == "" {
		opts.moderator = os.Getenv("USER")
	}
	if err := run(ctx, rt.Service, command, opts, os.Stdout); err != nil {
		rt.Close()
		fatalf("%s: %v", command, err)
	}
}

func run(ctx context.Context, svc moderation.Service, command string, opts options, out io.Writer) error {
	switch command {
	case "queue":
		items, err := svc.GetModerationQueue(ctx, moderation.Collection(opts.contentType))
		if err != nil {
			return err
		}
		if opts.json {
			return writeJSON(out, api.NewContentResponses(items))
		}
		printQueue(out, items)
	case "count":
		n, err := svc.GetPendingCount(ctx, moderation.Collection(opts.contentType))
		if err != nil {
			return err
		}
		if opts.json {
			return writeJSON(out, map[string]int{"count": n})
		}
		fmt.Fprintf(out, "Pending: %d\n", n)
	case "published":
		rows, err := svc.GetPublishedContent(ctx, moderation.PublishedKind(opts.contentType))
		if err != nil {
			return err
		}
		if opts.json {
			return writeJSON(out, rows)
		}
		printPublished(out, rows)
	case "history":
		id, err := opts.id()
		if err != nil {
			return err
		}
		entries, err := svc.GetModerationHistory(ctx, id)
		if err != nil {
			return err
		}
		if opts.json {
			return writeJSON(out, entries)
		}
		printHistory(out, entries)
	case "approve":
		id, err := opts.id()
		if err != nil {
			return err
		}
		published, err := svc.Approve(ctx, moderation.ApproveRequest{ContentID: id, ModeratorID: opts.moderator})
		if err != nil {
			return err
		}
		if opts.json {
			return writeJSON(out, published)
		}
		fmt.Fprintf(out, "Published %s as %s/%s\n", id, published.Collection, published.ID)
	case "reject":
		id, err := opts.id()
		if err != nil {
			return err
		}
		if err := svc.Reject(ctx, moderation.RejectRequest{ContentID: id, ModeratorID: opts.moderator, Reason: opts.reason}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Rejected %s\n", id)
	default:
		return fmt.Errorf("unknown command, run with --help")
	}
	return nil
}

func parseOptions(args []string) options {
	var opts options
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			opts.args = append(opts.args, arg)
			continue
		}
		key, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		switch key {
		case "type":
			opts.contentType = value
		case "moderator":
			opts.moderator = value
		case "reason":
			opts.reason = value
		case "json":
			opts.json = true
		}
	}
	return opts
}

func (o options) id() (string, error) {
	if len(o.args) == 0 || o.args[0] == "" {
		return "", fmt.Errorf("content id argument is required")
	}
	return o.args[0], nil
}

func printQueue(out io.Writer, items []*moderation.ContentItem) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTYPE\tPRIORITY\tTITLE\tSUBMITTED\n")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.ID,
			item.Collection,
			item.Priority,
			truncate(item.Title, 40),
			item.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal: %d\n", len(items))
}

func printPublished(out io.Writer, rows []*moderation.PublishedContent) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tCOLLECTION\tSTATUS\tTITLE\tPUBLISHED\n")
	for _, p := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			p.Collection,
			p.Status,
			truncate(p.Title, 40),
			p.PublishedAt.Format(time.RFC3339),
		)
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal: %d\n", len(rows))
}

func printHistory(out io.Writer, entries []*moderation.ModerationLogEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tACTION\tMODERATOR\tREASON\n")
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.ModeratorID, reason)
	}
	w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
