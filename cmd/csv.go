package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/nodskit/ndk/csv"
	"github.com/spf13/cobra"
)

func NewCSVCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	com, err := cobrafy.Command(csv.NewMain())
	if err != nil {
		panic(err)
	}
	com.Use = "csv"
	com.Short = "csv - clean and summarize CSV files"
	return com
}

func init() {
	subcommandFns["csv"] = NewCSVCommand
}
