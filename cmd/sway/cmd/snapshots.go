package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/swayhq/sway/internal/core/store"
	"github.com/swayhq/sway/internal/types"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshots,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the content of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsShow,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.Flags().Int("limit", store.DefaultListLimit, "maximum snapshots to list")
	snapshotsShowCmd.Flags().StringP("format", "f", "json", "output format (json, yaml)")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	snaps, err := store.NewSnapshots(queries).List(limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tLABEL\tENTRIES\tCHECKSUM\tCREATED")
	for _, s := range snaps {
		label := s.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.Kind, label, s.Entries, s.Checksum[:12], s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	id, err := types.ParseSnapshotID(args[0])
	if err != nil {
		return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	snap, err := store.NewSnapshots(queries).Get(id)
	if err != nil {
		return err
	}
	var content any
	if err := snap.Decode(&content); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return writeFormatted(cmd.OutOrStdout(), format, content)
}
