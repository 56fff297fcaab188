// Package cli содержит команды dkp-bot: сервис, синхронизацию, миграции и отчёт.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"dkp_bot/internal/application"
	"dkp_bot/pkg/contextx"
	"dkp_bot/pkg/logx"
)

type rootOptions struct {
	app *application.Application
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dkp-bot",
		Short:         "Синхронизация сделок ДКП из amoCRM и Profitbase",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := application.Load()
			if err != nil {
				return fmt.Errorf("application.Load: %w", err)
			}

			cfg := app.Config()

			log := logx.New(os.Stderr, cfg.App.LogLevel).With(
				slog.String(logx.FieldAppName, cfg.App.Name),
				slog.String(logx.FieldAppVersion, cfg.App.Version),
			)
			slog.SetDefault(log)

			cmd.SetContext(contextx.WithLogger(cmd.Context(), log))
			opts.app = app

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if opts.app != nil {
				opts.app.Close(cmd.Context())
			}
		},
	}

	cmd.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newMigrateCommand(opts),
		newReportCommand(opts),
	)

	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить бота, планировщик и REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.app.Serve(cmd.Context())
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Накатить миграции базы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.app.Migrate(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Показать состояние миграций",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.app.MigrationStatus(cmd.Context())
		},
	})

	return cmd
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Отправить ежедневный отчёт по почте",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.app.Report(cmd.Context())
		},
	}
}
