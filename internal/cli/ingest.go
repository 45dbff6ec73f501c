package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Build the index from documents",
		Long: `Reads .txt and .pdf documents, splits them into overlapping chunks,
embeds every chunk and writes the index to the configured index directory.

Without arguments the configured documents directory is ingested. Arguments
may be files, directories or glob patterns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := buildService(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := svc.Ingest(cmd.Context(), args)
			if err != nil {
				return err
			}
			cmd.Printf("Indexed %d documents (%d txt, %d pdf) into %d chunks in %s.\n",
				report.Documents, report.TextFiles, report.PDFFiles, report.Chunks, report.Elapsed.Round(time.Millisecond))
			cmd.Printf("Embedding model: %s (dimension %d)\n", report.EmbeddingModel, report.Dimension)
			cmd.Printf("Index: %s [%s, id %s]\n", report.IndexDir, report.Store, report.IndexID)
			return nil
		},
	}
}
