package cli

import (
	"time"

	"github.com/spf13/cobra"

	"ragqa/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var skipInitial bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-ingest whenever documents change",
		Long: `Builds the index, then watches the documents directory and rebuilds
the index after .txt or .pdf files are created, changed or removed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeStore, err := buildService(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			w := watch.New(a.cfg.Documents.Dir, svc, watch.Options{
				Debounce:      time.Duration(a.cfg.Watch.DebounceMillis) * time.Millisecond,
				IngestOnStart: !skipInitial,
				Logger:        a.logger,
			})
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "do not ingest before the first change")
	return cmd
}
