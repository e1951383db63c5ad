// Command hoodlink is a one-shot client for inbox, chat, feed and business
// operations. It reads the same configuration as hoodlinkd.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"hoodlink/internal/api"
	"hoodlink/internal/bootstrap"
	"hoodlink/internal/config"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"
)

type needs int

const (
	needsSession needs = iota
	needsREST
	needsSocket
)

type command struct {
	usage string
	needs needs
	run   func(ctx context.Context, c *cli, args []string) (any, error)
}

var commands = map[string]command{
	"inbox":    {usage: "inbox [general|direct|business|business_sales|products]", needs: needsREST, run: runInbox},
	"messages": {usage: "messages [chat flags] <peer-id>", needs: needsREST, run: runMessages},
	"send":     {usage: "send [chat flags] [-file path]... <peer-id> <text>", needs: needsSocket, run: runSend},
	"edit":     {usage: "edit [chat flags] <peer-id> <message-id> <text>", needs: needsREST, run: runEdit},
	"delete":   {usage: "delete [chat flags] <peer-id> <message-id>", needs: needsREST, run: runDelete},
	"react":    {usage: "react [chat flags] <peer-id> <message-id> <emoji>", needs: needsSocket, run: runReact},
	"room-id":  {usage: "room-id [chat flags] <peer-id>", needs: needsSession, run: runRoomID},
	"feed":     {usage: "feed [-comments post-id]", needs: needsREST, run: runFeed},
	"business": {usage: "business [list | <business-id>]", needs: needsREST, run: runBusiness},
}

type cli struct {
	cfg     *config.Config
	session *api.Session
	rt      *bootstrap.Runtime
	out     io.Writer
	format  string
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hoodlink [-o json|yaml] [-timeout 30s] <command> [args]")
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w, "Chat flags: -kind dm|product|business -peer-type user|business -product id -business id")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hoodlink", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("o", "json", "output format: json or yaml")
	timeout := fs.Duration("timeout", 30*time.Second, "overall command timeout")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", fs.Arg(0))
		usage(stderr)
		return 2
	}
	if *format != "json" && *format != "yaml" {
		fmt.Fprintf(stderr, "Unknown output format: %s\n", *format)
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	observability.SetupLogger(cfg.LogLevel, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := &cli{cfg: cfg, out: stdout, format: *format}
	if cmd.needs == needsSession {
		sess, err := api.NewSession(cfg.AuthToken, models.ID(cfg.UserID), cfg.UserType, models.ID(cfg.BusinessID))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		c.session = sess
	} else {
		rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Realtime: true})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer rt.Close()
		c.rt = rt
		c.session = rt.Session
	}
	if cmd.needs == needsSocket {
		stop, err := c.connect(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer stop()
	}

	result, err := cmd.run(ctx, c, fs.Args()[1:])
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(stderr, "Usage: hoodlink %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if result == nil {
		return 0
	}
	if err := render(c.out, c.format, result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// connect runs the realtime manager until stop is called and waits for the
// first connection.
func (c *cli) connect(ctx context.Context) (stop func(), err error) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.rt.Realtime.Run(runCtx)
	}()
	stop = func() {
		cancel()
		<-done
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	if err := c.rt.Realtime.WaitConnected(waitCtx); err != nil {
		stop()
		return nil, fmt.Errorf("realtime connect: %w", err)
	}
	return stop, nil
}
