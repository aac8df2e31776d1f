package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotebook/internal/model"
	"github.com/rcliao/quotebook/internal/store"
)

const (
	msgEmpty         = "No quotes yet. Add a new one!"
	msgEmptyCategory = "No quotes for this category."
)

func init() {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a random quote from the selected category",
		Run:   runShow,
	}

	cmd.Flags().StringP("category", "c", "", "Pick from this category instead of the selected one")

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")

	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	var q model.Quote
	if category != "" {
		q, err = st.PickRandom(st.Filter(category))
	} else {
		q, err = st.Next(cmd.Context())
	}
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		exitErr("show", err)
	}
	printQuote(cmd.OutOrStdout(), st, q, err)
}

// printQuote writes q, or the empty-state message when nothing could be picked.
func printQuote(w io.Writer, st *store.QuoteStore, q model.Quote, err error) {
	switch {
	case err == nil:
		fmt.Fprintln(w, q.String())
	case st.Len() == 0:
		fmt.Fprintln(w, msgEmpty)
	default:
		fmt.Fprintln(w, msgEmptyCategory)
	}
}
