package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/quotebook/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes",
		Run:   runList,
	}

	cmd.Flags().StringP("category", "c", model.AllCategories, `Filter by category ("all" for every quote)`)

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")

	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	printJSON(cmd.OutOrStdout(), st.Filter(category))
}
