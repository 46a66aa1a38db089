package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured sources over the items API",
	Long: `Serve answers GET /items?start=YYYY-MM-DD&end=YYYY-MM-DD from the
configured remind, iCalendar and upstream API sources, so another timegrid
can use this one as its api_url.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		initConfig()
	}
	addr := cfg.Listen
	if serveListen != "" {
		addr = serveListen
	}

	// Logs go to stderr; there is no screen to protect.
	log, err := logging.New(logging.Options{Debug: cfg.Debug})
	if err != nil {
		return err
	}
	defer log.Sync()

	src, _, err := buildSource(log)
	if err != nil {
		return err
	}
	if cfg.ServerSecret == "" {
		log.Warn("server_secret is not set, /items is open to anyone who can reach " + addr)
	}

	burst := int(cfg.ServerRate)
	if burst < 1 {
		burst = 1
	}
	srv := server.New(src, server.Options{
		Secret: cfg.ServerSecret,
		Rate:   cfg.ServerRate,
		Burst:  burst,
		Logger: log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("serving items", zap.String("addr", addr))
	return srv.Run(ctx, addr)
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token SUBJECT",
	Short: "Issue a bearer token for the items API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			initConfig()
		}
		token, err := server.Issue([]byte(cfg.ServerSecret), args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
