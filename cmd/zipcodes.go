package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/nodskit/ndk/usecase/zipcodes"
	"github.com/spf13/cobra"
)

func NewZipcodesCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	com, err := cobrafy.Command(zipcodes.NewMain())
	if err != nil {
		panic(err)
	}
	com.Use = "zipcodes"
	com.Short = "zipcodes - worked example over US zip code records"
	return com
}

func init() {
	subcommandFns["zipcodes"] = NewZipcodesCommand
}
