package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/high-horse/sourceafis"
	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/templates"
)

// rootCommand creates the afis command tree.
func rootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "afis",
		Short:        "Fingerprint matching engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				config.LoadDefaultConfig()
				return nil
			}
			_, err := config.LoadConfig(configPath)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")

	rootCmd.AddCommand(serveCommand(), compareCommand())
	return rootCmd
}

func serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := config.Config.Clone()
			if addr != "" {
				p.Server.Addr = addr
			}

			log, closer, err := newLogger(p.Server)
			if err != nil {
				return err
			}
			defer closer.Close()

			engine, err := sourceafis.NewEngine(sourceafis.WithParameters(p), sourceafis.WithLogger(log))
			if err != nil {
				return err
			}
			app := newServer(engine, NewGallery(), NewMetrics(), log, p.Server.BodyLimit)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := app.ShutdownWithContext(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("shutdown failed")
				}
			}()

			log.Info().
				Str("addr", p.Server.Addr).
				Int("workers", p.WorkerCount()).
				Float64("threshold", p.Engine.Threshold).
				Msg("server starting")
			return app.Listen(p.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func compareCommand() *cobra.Command {
	var transparencyDir string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "compare <probe> <candidate>",
		Short: "Score two template files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.TraceLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
			ctx := log.WithContext(cmd.Context())

			now := time.Now()
			probe, err := readTemplate(args[0])
			if err != nil {
				return fmt.Errorf("failed to load probe template: %w", err)
			}
			candidate, err := readTemplate(args[1])
			if err != nil {
				return fmt.Errorf("failed to load candidate template: %w", err)
			}

			var l *sourceafis.TransparencyLogger
			if transparencyDir != "" {
				if err := os.MkdirAll(transparencyDir, 0o755); err != nil {
					return err
				}
				l = sourceafis.NewTransparencyLogger(&TransparencyContents{dir: transparencyDir, log: log})
			}
			matcher, err := sourceafis.NewMatcher(l, probe)
			if err != nil {
				return fmt.Errorf("failed to create matcher: %w", err)
			}
			score := matcher.Match(ctx, candidate)

			threshold := config.Config.Engine.Threshold
			fmt.Fprintf(cmd.OutOrStdout(), "score: %.3f match: %v\n", score, score >= threshold)
			log.Debug().Dur("elapsed", time.Since(now)).Msg("compared")
			return nil
		},
	}
	cmd.Flags().StringVar(&transparencyDir, "transparency", "", "directory receiving CBOR dumps of matcher internals")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log matcher details")
	return cmd
}

func readTemplate(path string) (*templates.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return templates.Parse(data)
}

// TransparencyContents writes every transparency record to dir as <key>.cbor.
type TransparencyContents struct {
	dir string
	log zerolog.Logger
}

func (c *TransparencyContents) Accepts(key string) bool {
	return true
}

func (c *TransparencyContents) Accept(key, mime string, data []byte) error {
	c.log.Debug().Str("key", key).Str("mime", mime).Int("bytes", len(data)).Msg("transparency")
	return os.WriteFile(filepath.Join(c.dir, key+".cbor"), data, 0o644)
}
