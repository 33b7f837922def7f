package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/room-usage-monitor/internal/models"
	"github.com/noah-isme/room-usage-monitor/pkg/config"
	"github.com/noah-isme/room-usage-monitor/pkg/export"
	"github.com/noah-isme/room-usage-monitor/pkg/gsheets"
	"github.com/noah-isme/room-usage-monitor/pkg/jobs"
	"github.com/noah-isme/room-usage-monitor/pkg/logger"
	"github.com/noah-isme/room-usage-monitor/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// session carries the loaded configuration into subcommands.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	s := &session{}
	cmd := &cobra.Command{
		Use:           "room-monitor",
		Short:         "Classify classroom usage from bookings and CO2 readings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			s.cfg, s.logger = cfg, logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s.logger != nil {
				_ = s.logger.Sync()
			}
		},
	}

	cmd.AddCommand(
		newRunCommand(s),
		newOnceCommand(s),
		newScheduleCommand(s),
		newAuthCommand(s),
	)
	return cmd
}

func newRunCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor loop and the status API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApplication(ctx, s.cfg, s.logger)
			if err != nil {
				return err
			}
			defer app.close()

			var srv *http.Server
			serverErr := make(chan error, 1)
			if s.cfg.HTTP.Enabled {
				srv = &http.Server{
					Addr:              fmt.Sprintf(":%d", s.cfg.Port),
					Handler:           app.router(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					s.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", s.cfg.Env)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						serverErr <- err
					}
				}()
			}

			loopCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			failed := make(chan error, 1)
			go func() {
				select {
				case err := <-serverErr:
					s.logger.Error("server failed", zap.Error(err))
					failed <- err
					cancel()
				case <-loopCtx.Done():
				}
			}()

			ticker := jobs.NewTicker("room-monitor", func(ctx context.Context) error {
				_, err := app.monitor.RunCycle(ctx)
				return err
			}, jobs.TickerConfig{Interval: s.cfg.Monitor.Interval, Logger: s.logger})
			ticker.Run(loopCtx)

			if srv != nil {
				shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
				defer stop()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown server: %w", err)
				}
			}
			return stopReason(failed, s.logger)
		},
	}
}

// stopReason reports a server failure that ended the loop, if there was one.
func stopReason(failed <-chan error, logr *zap.Logger) error {
	select {
	case err := <-failed:
		return fmt.Errorf("http server: %w", err)
	default:
		logr.Info("monitor stopped")
		return nil
	}
}

func newOnceCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single cycle and print the status report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(cmd.Context(), s.cfg, s.logger)
			if err != nil {
				return err
			}
			defer app.close()

			report, err := app.monitor.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			payload, err := report.JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		},
	}
}

func newScheduleCommand(s *session) *cobra.Command {
	var format, output, date string
	var bom bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Fetch the reservation sheet and export the tracked room's bookings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(cmd.Context(), s.cfg, s.logger)
			if err != nil {
				return err
			}
			defer app.close()

			entries, err := app.monitor.RefreshSchedule(cmd.Context())
			if err != nil {
				return err
			}
			if date != "" {
				d, err := models.ParseCivilDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				entries = models.EntriesOn(entries, d)
			}

			data, err := renderSchedule(entries, format, s.cfg.Room.SheetID, bom)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			store, err := storage.NewLocalStorage(filepath.Dir(output))
			if err != nil {
				return err
			}
			if _, err := store.Save(filepath.Base(output), data); err != nil {
				return err
			}
			s.logger.Info("schedule exported", zap.String("path", output), zap.Int("entries", len(entries)))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&date, "date", "", "only export entries for this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&bom, "bom", false, "prefix CSV output with a UTF-8 byte order mark")
	return cmd
}

func newAuthCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access with an OAuth client secret and store the token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := gsheets.Authorize(cmd.Context(), gsheets.Config{
				CredentialsFile: s.cfg.Sheets.CredentialsFile,
				TokenFile:       s.cfg.Sheets.TokenFile,
				Logger:          s.logger,
			}, func(authURL string) error {
				_, err := fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in a browser to grant access:\n\n%s\n\n", authURL)
				return err
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "token written to %s\n", s.cfg.Sheets.TokenFile)
			return err
		},
	}
}

func renderSchedule(entries []models.ScheduleEntry, format, room string, bom bool) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "csv":
		return export.NewCSVExporter(bom).Render(export.ScheduleDataset(entries, export.ScheduleCSVHeaders))
	case "pdf":
		return export.NewPDFExporter().Render(export.ScheduleDataset(entries, export.SchedulePDFHeaders), room+" schedule")
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
