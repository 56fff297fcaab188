package cli

import (
	"github.com/spf13/cobra"

	"dkp_bot/internal/application"
	"dkp_bot/internal/domain/service/reconcile"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var syncOpts application.SyncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Выполнить проход синхронизации и вывести итог",
		Long: `Выполняет проход по всем аккаунтам из файла проектов и печатает таблицу
переходов. Без --notify уведомления пишутся только в лог.

Пример:
  dkp-bot sync
  dkp-bot sync --watch --notify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.app.Sync(cmd.Context(), syncOpts, func(report reconcile.Report) {
				writeReport(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().BoolVar(&syncOpts.Watch, "watch", false, "повторять проход с интервалом SYNC_WATCH_INTERVAL")
	cmd.Flags().BoolVar(&syncOpts.Notify, "notify", false, "рассылать уведомления в Telegram и на почту")

	return cmd
}
