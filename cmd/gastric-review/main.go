package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/gastric-review/internal/annotation"
	"github.com/ironsheep/gastric-review/internal/config"
	"github.com/ironsheep/gastric-review/internal/dataset"
	"github.com/ironsheep/gastric-review/internal/export"
	"github.com/ironsheep/gastric-review/internal/imaging"
	"github.com/ironsheep/gastric-review/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	jsonLogs   bool
)

func main() {
	root := &cobra.Command{
		Use:   "gastric-review",
		Short: "Gastric ultrasound review dashboard backend",
		Long: "gastric-review serves a local review dashboard over a gastric " +
			"cancer ultrasound dataset: peritumoral ring overlays, lesion ROI " +
			"zooms, rule-based T/N staging and report export.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON logs instead of console output")

	root.AddCommand(serveCmd(), ringCmd(), exportCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if jsonLogs {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Server.DataDir = dataDir
			}

			store, err := dataset.Open(cfg.Server.DataDir, log)
			if err != nil {
				return fmt.Errorf("failed to open dataset: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Server.WatchDataDir {
				go func() {
					if err := store.Watch(ctx); err != nil {
						log.Warn().Err(err).Msg("dataset watcher stopped")
					}
				}()
			}

			log.Info().
				Str("version", Version).
				Str("data_dir", cfg.Server.DataDir).
				Int("patients", len(store.Patients())).
				Msg("starting")

			return server.New(cfg, store, log).Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "dataset root (overrides config)")
	return cmd
}

// ringCmd renders a single ring overlay to a file, useful for batch
// regeneration and for eyeballing parameter changes without the dashboard.
func ringCmd() *cobra.Command {
	var (
		annotationPath string
		outPath        string
		radius         int
	)

	cmd := &cobra.Command{
		Use:   "ring",
		Short: "Render a peritumoral ring overlay from an annotation file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if radius >= 0 {
				cfg.Ring.Radius = radius
			}

			doc, err := annotation.LoadFile(annotationPath)
			if err != nil {
				return err
			}

			ring, err := imaging.GenerateRing(&imaging.PolygonSource{
				Shapes: annotation.FilterByKeywords(doc.Polygons(), annotation.LesionKeywords),
				Width:  doc.ImageWidth,
				Height: doc.ImageHeight,
			}, imaging.RingOptions{
				Radius:       cfg.Ring.Radius,
				Color:        cfg.Ring.Color,
				Alpha:        cfg.Ring.Alpha,
				FadeStrength: cfg.Ring.FadeStrength,
			})
			if err != nil {
				return err
			}

			data, err := base64.StdEncoding.DecodeString(ring.ImageBase64)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write overlay: %w", err)
			}

			fmt.Printf("wrote %s (%dx%d, %d ring pixels)\n", outPath, ring.Width, ring.Height, ring.RingPixels)
			return nil
		},
	}
	cmd.Flags().StringVarP(&annotationPath, "annotation", "a", "", "annotation JSON file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "ring.png", "output PNG path")
	cmd.Flags().IntVarP(&radius, "radius", "r", -1, "ring radius in pixels (overrides config)")
	cmd.MarkFlagRequired("annotation")
	return cmd
}

func exportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the patient roster as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := dataset.Open(cfg.Server.DataDir, log)
			if err != nil {
				return fmt.Errorf("failed to open dataset: %w", err)
			}

			rows := export.RosterFromStore(store)

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer f.Close()

			if err := export.WriteCSV(f, rows); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d patients)\n", outPath, len(rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "patients.csv", "output CSV path")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gastric-review %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
		},
	}
}
