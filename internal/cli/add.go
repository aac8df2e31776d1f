package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a quote",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAdd,
	}

	cmd.Flags().StringP("category", "c", "", "Category (required)")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")

	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	q, err := st.Add(cmd.Context(), strings.Join(args, " "), category)
	if err != nil {
		exitErr("add", err)
	}

	printJSON(cmd.OutOrStdout(), q)
}
