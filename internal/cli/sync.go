package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/quotebook/internal/syncer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync with the remote endpoint",
		Long:  "Fetch remote quotes, merge the new ones, then push the full collection. Failures are reported, not fatal.",
		Run:   runSync,
	}

	RootCmd.AddCommand(cmd)
}

type syncOutput struct {
	syncer.Report
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func newSyncOutput(rep syncer.Report) syncOutput {
	out := syncOutput{Report: rep, Outcome: rep.Outcome()}
	if err := rep.Err(); err != nil {
		out.Error = err.Error()
	}
	return out
}

func runSync(cmd *cobra.Command, args []string) {
	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	rep := newSynchronizer(st, nil, nil).Run(cmd.Context())
	printJSON(cmd.OutOrStdout(), newSyncOutput(rep))
}
