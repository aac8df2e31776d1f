package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file|-]",
		Short: "Import quotes from JSON",
		Long:  "Import quotes from a JSON file (or stdin). Expects the format produced by export. Duplicates are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			exitErr("open import file", err)
		}
		defer f.Close()
		r = f
	}

	res, err := st.Import(cmd.Context(), r)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d,"total":%d}`+"\n", res.Added, len(res.Quotes))
}
