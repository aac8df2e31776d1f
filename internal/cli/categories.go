package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories in order of first appearance",
		Run:   runCategories,
	}

	RootCmd.AddCommand(cmd)
}

type categoriesOutput struct {
	Selected   string   `json:"selected"`
	Categories []string `json:"categories"`
}

func runCategories(cmd *cobra.Command, args []string) {
	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	printJSON(cmd.OutOrStdout(), categoriesOutput{
		Selected:   st.SelectedCategory(cmd.Context()),
		Categories: st.Categories(),
	})
}
