package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quotes as JSON",
		Long:  `Export every quote as a JSON array of {"text","category"} objects. Writes to stdout unless -o is given.`,
		Run:   runExport,
	}

	cmd.Flags().StringP("output", "o", "-", `Output file, e.g. quotes.json ("-" for stdout)`)

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")

	st, db, err := openStore(cmd.Context(), nil)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	if err := exportTo(cmd.OutOrStdout(), output, st.Export); err != nil {
		exitErr("export", err)
	}
	if output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d quotes to %s\n", st.Len(), output)
	}
}

// exportTo runs export against stdout or the named file.
func exportTo(stdout io.Writer, path string, export func(io.Writer) error) error {
	if path == "-" || path == "" {
		return export(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
