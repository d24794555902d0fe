package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/nodskit/ndk/web"
	"github.com/spf13/cobra"
)

func NewFetchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	com, err := cobrafy.Command(web.NewMain())
	if err != nil {
		panic(err)
	}
	com.Use = "fetch"
	com.Short = "fetch - pull records from a JSON endpoint and summarize them"
	return com
}

func init() {
	subcommandFns["fetch"] = NewFetchCommand
}
