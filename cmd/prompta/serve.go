package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/internal/cli"
	"github.com/synzen/prompt-anything-sub000/pkg/adapters/httpchat"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
	"github.com/synzen/prompt-anything-sub000/pkg/metrics"
	"github.com/synzen/prompt-anything-sub000/pkg/session"
	"github.com/synzen/prompt-anything-sub000/pkg/transcript"
)

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Start the HTTP chat server",
	Long: `Serves a flow as a JSON chat API over HTTP. POST /sessions opens a new
conversation; Prometheus metrics are exposed on /metrics. With a Redis
address configured, finished transcripts are archived there.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		port := viper.GetString("port")
		redisAddr := viper.GetString("redis_addr")

		logger := appLogger()

		def, err := cli.LoadDefinition(context.Background(), path)
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}
		if err := def.Validate(); err != nil {
			fmt.Printf("Error: flow %s: %v\n", def.Name, err)
			os.Exit(1)
		}
		if _, err := def.Build(nil); err != nil {
			fmt.Printf("Error building flow %s: %v\n", def.Name, err)
			os.Exit(1)
		}

		m := metrics.New()

		hub := session.NewHub[flow.Data]().
			WithLogger(logger).
			WithHooks(m.Hooks())

		var archive func(context.Context, *session.Session[flow.Data]) error
		if redisAddr != "" {
			store := transcript.NewRedisStore(redisAddr, "", 0)
			archive = transcript.Archive[flow.Data](store)
			logger.Info("archiving transcripts to redis", "addr", redisAddr)
		}
		// Every finished session passes through the archiver exactly once;
		// settle the active-run gauge there.
		hub.WithArchiver(func(ctx context.Context, s *session.Session[flow.Data]) error {
			m.RunEnded()
			if archive != nil {
				return archive(ctx, s)
			}
			return nil
		})

		cfg := def.RunConfig()
		src := session.Source[flow.Data]{
			Flow:    def.Name,
			Initial: def.Initial,
			Config:  &cfg,
			// Build runs once per session start.
			Build: func() (*prompta.Node[flow.Data], error) {
				root, err := def.Build(nil)
				if err == nil {
					m.RunStarted()
				}
				return root, err
			},
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.Handle("/", httpchat.NewHandler(hub, src, httpchat.WithLogger[flow.Data](logger)))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Prompta Server on %s\n", srv.Addr)
			fmt.Printf("Serving flow: %s\n", def.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Cancel conversations first so long-polling requests unblock
			// and the listener can drain.
			if err := hub.CloseAll(ctx); err != nil {
				fmt.Printf("Error closing sessions: %v\n", err)
			}

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Prompta Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis-addr", "", "Redis address for transcript archiving (host:port, empty disables)")

	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("redis_addr", serveCmd.Flags().Lookup("redis-addr"))
}
