package cmd

import (
	"context"
	"io"
	"log"

	"github.com/nodskit/ndk"
	"github.com/nodskit/ndk/kafka"
	"github.com/spf13/cobra"
)

var KafkaMain *kafka.Source

func NewKafkaCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	KafkaMain = kafka.NewSource()
	kafkaCommand := &cobra.Command{
		Use:   "kafka",
		Short: "kafka - consume JSON records from Kafka and summarize them",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := KafkaMain.Open()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := KafkaMain.Close(); cerr != nil {
					log.Printf("closing kafka source: %v", cerr)
				}
			}()
			rs, err := KafkaMain.Fetch(context.Background(), nil)
			if err != nil {
				return err
			}
			if err := ndk.RenderRecords(stdout, rs); err != nil {
				return err
			}
			return ndk.Summarize(rs).Render(stdout)
		},
	}
	flags := kafkaCommand.Flags()
	flags.StringSliceVarP(&KafkaMain.Hosts, "kafka-hosts", "k", []string{"localhost:9092"}, "Kafka cluster.")
	flags.StringSliceVarP(&KafkaMain.Topics, "topics", "t", []string{"test"}, "Topics to consume from Kafka.")
	flags.StringVarP(&KafkaMain.Group, "group", "g", "group0", "Group id to use when consuming from Kafka.")
	flags.IntVarP(&KafkaMain.MaxMsgs, "max-msgs", "m", 1000, "Number of messages to consume before summarizing.")
	return kafkaCommand
}

func init() {
	subcommandFns["kafka"] = NewKafkaCommand
}
