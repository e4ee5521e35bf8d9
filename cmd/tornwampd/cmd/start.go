package cmd

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rexlunae/tornwamp/config"
	"github.com/rexlunae/tornwamp/router"
	"github.com/rexlunae/tornwamp/transport"
	"github.com/rexlunae/tornwamp/wamp"
)

var devMode bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the router",
	Long: `Start tornwampd, binding whichever of the rawsocket and WebSocket
transports are configured and serving every realm named in the config file
(realms not listed there are still created lazily on first HELLO).`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose per-message logging)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	router.DebugEnabled = cfg.DevMode

	var registerer prometheus.Registerer
	if cfg.MetricsAddr != "" {
		registerer = prometheus.DefaultRegisterer
	}

	rtr := router.NewRouter(cfg.StrictURI)
	for _, spec := range cfg.Realms {
		rc := &router.RealmConfig{
			URI:        wamp.URI(spec.URI),
			StrictURI:  cfg.StrictURI,
			Roles:      toRoleTable(spec.Roles),
			Registerer: registerer,
		}
		if _, err := rtr.AddRealm(rc); err != nil {
			return fmt.Errorf("adding realm %s: %w", spec.URI, err)
		}
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	if cfg.Listener.RawSocketAddr != "" {
		if err := startRawSocketListener(rtr, cfg.Listener); err != nil {
			return fmt.Errorf("starting rawsocket listener: %w", err)
		}
	}
	if cfg.Listener.WebSocketAddr != "" {
		if err := startWebSocketListener(rtr, cfg.Listener); err != nil {
			return fmt.Errorf("starting websocket listener: %w", err)
		}
	}

	waitForShutdown()
	rtr.Close()
	return nil
}

func toRoleTable(roles map[string]config.RoleSpec) router.RoleTable {
	if len(roles) == 0 {
		return nil
	}
	table := router.DefaultRoleTable()
	for action, spec := range roles {
		rule := router.NewRoleRule()
		rule.DefaultAllow = spec.DefaultAllow
		for _, p := range spec.Whitelist {
			rule.Whitelist[p] = struct{}{}
		}
		for _, p := range spec.Blacklist {
			rule.Blacklist[p] = struct{}{}
		}
		table[action] = rule
	}
	return table
}

func startRawSocketListener(rtr router.Router, lc config.ListenerConfig) error {
	ln, err := net.Listen("tcp", lc.RawSocketAddr)
	if err != nil {
		return err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				peer, err := transport.AcceptRawSocket(conn, lc.MaxFrameLength)
				if err != nil {
					conn.Close()
					return
				}
				if err := rtr.Attach(peer, "", ""); err != nil {
					peer.Close()
				}
			}()
		}
	}()
	fmt.Printf("rawsocket listening on %s\n", lc.RawSocketAddr)
	return nil
}

func startWebSocketListener(rtr router.Router, lc config.ListenerConfig) error {
	upgrader := transport.NewUpgrader()
	if lc.PreferredSerializer == "json" {
		upgrader.PreferredProtocol = transport.SubprotocolJSON
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		peer, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		if err := rtr.Attach(peer, "", ""); err != nil {
			peer.Close()
		}
	})
	srv := &http.Server{Addr: lc.WebSocketAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "websocket listener stopped: %v\n", err)
		}
	}()
	fmt.Printf("websocket listening on %s/ws\n", lc.WebSocketAddr)
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "metrics listener stopped: %v\n", err)
	}
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
