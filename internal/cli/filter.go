package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "filter <category|all>",
		Short: "Remember the category used by show and shell",
		Args:  cobra.ExactArgs(1),
		Run:   runFilter,
	}

	RootCmd.AddCommand(cmd)
}

func runFilter(cmd *cobra.Command, args []string) {
	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	if err := st.SelectCategory(cmd.Context(), args[0]); err != nil {
		exitErr("filter", err)
	}

	selected := st.SelectedCategory(cmd.Context())
	printJSON(cmd.OutOrStdout(), map[string]any{
		"ok":       true,
		"selected": selected,
		"quotes":   len(st.Filter(selected)),
	})
}
