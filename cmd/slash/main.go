// File: cmd/slash/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Terminal chat client: authorizes through the local OAuth callback when no
// token is configured, opens the realtime session and prints events as
// lines. Input lines are "CHANNEL text" or slash commands.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/momentics/hioload-rtm/config"
	"github.com/momentics/hioload-rtm/control"
	"github.com/momentics/hioload-rtm/journal"
	"github.com/momentics/hioload-rtm/oauth"
	"github.com/momentics/hioload-rtm/protocol"
	"github.com/momentics/hioload-rtm/realtime"
	"github.com/momentics/hioload-rtm/server"
	"github.com/momentics/hioload-rtm/transport"
	"github.com/momentics/hioload-rtm/webapi"
	"golang.org/x/time/rate"
)

var scopes = []string{"client"}

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	token := flag.String("token", "", "access token (skips OAuth)")
	port := flag.Int("port", 0, "OAuth callback port")
	strict := flag.Bool("strict", false, "verify the websocket accept key")
	journalPath := flag.String("journal", "", "SQLite event journal path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "token":
			cfg.Token = *token
		case "port":
			cfg.ListenPort = *port
		case "strict":
			if *strict {
				cfg.HandshakeMode = "strict"
			}
		case "journal":
			cfg.JournalPath = *journalPath
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "slash: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	logger := log.New(os.Stderr, "slash: ", log.LstdFlags)
	metrics := control.NewMetricsRegistry()
	probes := control.NewDebugProbes()
	probes.RegisterMetrics(metrics)
	probes.RegisterRuntimeProbes()

	web := webapi.New(cfg.APIBase, cfg.Token)
	web.ClientID, web.ClientSecret = cfg.ClientID, cfg.ClientSecret
	if web.Token == "" {
		tok, err := authorize(ctx, cfg, web, metrics)
		if err != nil {
			return err
		}
		web.Token = tok
	}

	who := names{}
	if team, err := web.Start(ctx); err != nil {
		logger.Printf("team snapshot unavailable: %v", err)
	} else {
		for _, u := range team.Users {
			who[u.ID] = u.Name
		}
		probes.RegisterProbe("team", func() any { return team.Info.Name })
	}

	var jr *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		if jr, err = journal.Open(cfg.JournalPath); err != nil {
			return err
		}
		defer jr.Close()
	}

	mode, err := protocol.ParseHandshakeMode(cfg.HandshakeMode)
	if err != nil {
		return err
	}
	client := realtime.NewClient(web.ConnectURL, transport.TLSDialer(nil), &realtime.Options{
		Handshake:   protocol.Options{Mode: mode, ReadChunk: cfg.ReadChunk},
		Retry:       realtime.NewRetryPolicy(cfg.RetryInitial(), cfg.RetryMax()),
		SendRate:    rate.Limit(cfg.SendRatePerSec),
		SendBurst:   cfg.SendBurst,
		EventBuffer: cfg.EventBuffer,
		Logger:      log.New(os.Stderr, "realtime: ", log.LstdFlags),
		Metrics:     metrics,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()
	go readInput(ctx, cancel, in, out, client, web, jr, probes)

	for ev := range client.Events() {
		if jr != nil {
			if _, err := jr.Record(ctx, ev); err != nil {
				logger.Printf("journal: %v", err)
			}
		}
		if line := formatEvent(ev, who); line != "" {
			fmt.Fprintln(out, line)
		}
	}
	return <-runErr
}

// authorize runs the OAuth callback server until a token arrives.
func authorize(ctx context.Context, cfg *config.Config, web *webapi.Client, metrics *control.MetricsRegistry) (string, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return "", errors.New("no token configured and no client_id/client_secret for OAuth")
	}
	srv, flow, err := callbackServer(cfg, web, server.WithMetrics(metrics))
	if err != nil {
		return "", err
	}
	return oauth.Authenticate(ctx, srv, flow, nil)
}

// callbackServer binds the OAuth callback listener and builds a flow whose
// redirect names the port actually bound, which differs from the configured
// one when that is 0.
func callbackServer(cfg *config.Config, ex oauth.Exchanger, opts ...server.ServerOption) (*server.Server, *oauth.Flow, error) {
	srv, err := server.New(&server.Config{
		Host:           "127.0.0.1",
		Port:           cfg.ListenPort,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		ReadChunk:      cfg.ReadChunk,
	}, opts...)
	if err != nil {
		return nil, nil, err
	}
	flow := oauth.NewFlow(cfg.ClientID, scopes, oauth.RedirectURL(srv.Port()), ex, nil)
	return srv, flow, nil
}

func readInput(ctx context.Context, quit context.CancelFunc, in io.Reader, out io.Writer,
	client *realtime.Client, web *webapi.Client, jr *journal.Journal, probes *control.DebugProbes) {
	var ids realtime.ReplyCounter
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd, err := parseCommand(sc.Text())
		if err != nil {
			fmt.Fprintln(out, "!", err)
			continue
		}
		switch cmd.kind {
		case cmdSend:
			if err := client.Send(ctx, cmd.channel, cmd.text, ids.Next()); err != nil {
				fmt.Fprintln(out, "! send:", err)
			}
		case cmdStatus:
			state := probes.DumpState()
			for _, name := range sortedKeys(state) {
				fmt.Fprintf(out, "  %s = %v\n", name, state[name])
			}
		case cmdHistory:
			msgs, err := web.History(ctx, cmd.channel)
			if err != nil {
				fmt.Fprintln(out, "! history:", err)
				continue
			}
			for i := len(msgs) - 1; i >= 0; i-- {
				fmt.Fprintf(out, "[%s] <%s> %s\n", cmd.channel, msgs[i].User, msgs[i].Text)
			}
		case cmdRecent:
			if jr == nil {
				fmt.Fprintln(out, "! no journal configured")
				continue
			}
			entries, err := jr.Recent(ctx, cmd.channel, 20)
			if err != nil {
				fmt.Fprintln(out, "! recent:", err)
				continue
			}
			for _, e := range entries {
				fmt.Fprintf(out, "  %s %s [%s] %s %s\n", e.At.Format("15:04:05"), e.Kind, e.Channel, e.User, e.Text)
			}
		case cmdQuit:
			quit()
			return
		}
	}
	quit()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
