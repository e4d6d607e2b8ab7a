package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gogvault/internal/logging"
	"gogvault/internal/manifest"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var showHidden bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the items recorded in the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.newStore(logging.NewNop())
			if err != nil {
				return err
			}
			m, err := loadManifest(store)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if m.Len() == 0 {
				fmt.Fprintln(out, "Manifest is empty; run `gogvault update` first.")
				return nil
			}

			rows := make([]table.Row, 0, m.Len())
			hiddenCount := 0
			for _, item := range m.Items {
				if item.Hidden {
					hiddenCount++
					if !showHidden {
						continue
					}
				}
				updated := ""
				if !item.DownloadsUpdated.IsZero() {
					updated = item.DownloadsUpdated.Format("2006-01-02")
				}
				rows = append(rows, table.Row{
					strconv.FormatInt(item.ID, 10),
					item.Slug,
					item.FolderName,
					len(item.Downloads),
					len(item.Extras),
					updated,
					yesNo(item.Hidden),
				})
			}

			fmt.Fprintln(out, renderTable(
				table.Row{"ID", "Slug", "Folder", "Downloads", "Extras", "Updated", "Hidden"},
				rows, 1, 4, 5))
			if !showHidden && hiddenCount > 0 {
				fmt.Fprintf(out, "%d hidden items omitted (use --hidden to include them)\n", hiddenCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHidden, "hidden", false, "Include hidden items")
	return cmd
}

func countFiles(m *manifest.Manifest) (downloads, extras int) {
	for _, item := range m.Items {
		downloads += len(item.Downloads)
		extras += len(item.Extras)
	}
	return downloads, extras
}
