package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/docqa"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the nodes and transitions of the question answering graph",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		logger, config := setup()

		runnable, err := docqa.Build(docqa.Deps{
			Retriever:     describeOnly{},
			Generator:     describeOnly{},
			MaxRetrievals: config.Alert.MaxRetrievals,
		})
		if err != nil {
			logger.Fatal("building the graph", zap.Error(err))
		}

		for _, line := range runnable.Describe() {
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
