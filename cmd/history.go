package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/printshop-tools/kdpcover/internal/archive"
	"github.com/printshop-tools/kdpcover/internal/storage"
)

func openHistory() (*storage.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStore(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, export and import saved cover generations",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryExportCmd())
	cmd.AddCommand(newHistoryImportCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest saved generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTRIM\tPAGES\tPAPER\tPROMPT")
			for _, rec := range records {
				prompt := rec.Prompt
				if r := []rune(prompt); len(r) > 40 {
					prompt = string(r[:40]) + "…"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"), rec.TrimSize, rec.PageCount, rec.PaperColor, prompt)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", storage.DefaultHistoryLimit, "Number of records to list")

	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var out string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history to a Parquet or JSONL file",
		Example: `  kdpcover history export --out history.parquet
  kdpcover history export --out history.jsonl --limit 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if err := archive.New(out).Write(records); err != nil {
				return fmt.Errorf("failed to export history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.parquet or .jsonl)")
	cmd.Flags().IntVar(&limit, "limit", 10000, "Maximum number of records to export")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newHistoryImportCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import history from a Parquet or JSONL file",
		Long: `Import history records from an archive. Records keep their IDs, so importing
the same file twice updates rather than duplicates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := archive.New(in).Load()
			if err != nil {
				return fmt.Errorf("failed to load archive: %w", err)
			}

			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, rec := range records {
				if _, err := store.Save(cmd.Context(), rec); err != nil {
					return fmt.Errorf("failed to import record %s: %w", rec.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records from %s\n", len(records), in)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Input file (.parquet or .jsonl)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
