// Command storesync runs a synchronization hub or a demo peer over
// WebSocket. Peers share a single "set" mutation that writes a key-value
// pair into the replicated state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/crosstate/storesync/config"
	"github.com/crosstate/storesync/hub"
	"github.com/crosstate/storesync/peer"
	"github.com/crosstate/storesync/storage"
	"github.com/crosstate/storesync/store"
	"github.com/crosstate/storesync/syncmsg"
	"github.com/crosstate/storesync/transport/ws"
)

func main() {
	var (
		mode    = flag.String("mode", "", "Run mode: hub or peer (required)")
		listen  = flag.String("listen", ":8743", "Hub listen address")
		hubURL  = flag.String("url", "ws://localhost:8743/sync", "Hub WebSocket URL (peer mode)")
		persist = flag.String("persist", "", "Path to persistence file (hub mode, optional)")
		set     = flag.String("set", "", "key=value to commit after connecting (peer mode)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *mode != "hub" && *mode != "peer" {
		fmt.Fprintln(os.Stderr, "Usage: storesync -mode hub|peer [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	settings := config.DefaultSettings()
	settings.Logger = logger
	settings.Observer = "slog"
	if *persist != "" {
		settings.PersistentStates = []string{"entries"}
	}

	switch *mode {
	case "hub":
		runHub(ctx, settings, *listen, *persist)
	case "peer":
		runPeer(ctx, settings, *hubURL, *set)
	}
}

func runHub(ctx context.Context, settings config.Settings, listen, persist string) {
	st := newDemoStore()

	var stg storage.Storage
	if persist != "" {
		stg = storage.NewFile(persist)
		storage.Register("file", stg)
	}

	listener := ws.NewListener(settings.Logger)
	coord := hub.New(ctx, st, listener, stg, settings)

	mux := http.NewServeMux()
	mux.Handle("/sync", listener)

	server := &http.Server{Addr: listen, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	settings.Logger.Info("hub listening", slog.String("addr", listen))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("hub server failed: %v", err)
	}

	metrics := coord.Metrics()
	settings.Logger.Info("hub stopped",
		slog.Int64("relayed", metrics.MutationsRelayed),
		slog.Int64("suppressed", metrics.EchoesSuppressed))
}

func runPeer(ctx context.Context, settings config.Settings, hubURL, set string) {
	st := newDemoStore()
	st.Subscribe(func(rec syncmsg.Record) {
		fmt.Printf("state: %v\n", st.State())
	})

	agent, err := peer.New(ctx, st, ws.NewDialer(hubURL, settings.Logger), settings)
	if err != nil {
		log.Fatalf("failed to connect to hub: %v", err)
	}
	defer agent.Close()

	if set != "" {
		key, value, ok := strings.Cut(set, "=")
		if !ok {
			log.Fatalf("invalid -set value %q, want key=value", set)
		}
		st.Commit("set", map[string]any{"key": key, "value": value})
	}

	<-ctx.Done()
}

func newDemoStore() *store.Memory {
	st := store.NewMemory(map[string]any{"entries": map[string]any{}})
	st.HandleMutation("set", func(state map[string]any, payload any) {
		kv, ok := payload.(map[string]any)
		if !ok {
			return
		}
		key, _ := kv["key"].(string)
		if key == "" {
			return
		}
		entries, ok := state["entries"].(map[string]any)
		if !ok {
			entries = map[string]any{}
			state["entries"] = entries
		}
		entries[key] = kv["value"]
	})
	return st
}
