package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	s3 "github.com/nodskit/ndk/aws/s3"
	"github.com/spf13/cobra"
)

func NewS3Command(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	com, err := cobrafy.Command(s3.NewMain())
	if err != nil {
		panic(err)
	}
	com.Use = "s3"
	com.Short = "s3 - summarize line separated JSON records from S3"
	return com
}

func init() {
	subcommandFns["s3"] = NewS3Command
}
