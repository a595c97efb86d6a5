package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/docqa"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/retrieval"
	"github.com/spigell/resume-agent/internal/state"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the resume index, extracting contacts and raising alerts on the way",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ask(args)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func ask(args []string) {
	base, config := setup()

	question, err := questionFrom(args)
	if err != nil {
		base.Fatal("reading the question", zap.Error(err))
	}

	runLog := logger.ForRun(base, uuid.NewString(), "ask")

	ctx, cancel := withTimeout(config)
	defer cancel()

	pool, err := newAI(ctx, config, runLog)
	if err != nil {
		runLog.Fatal("creating the ai client", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}
	runLog = logger.WithCommonFields(runLog, pool.Provider(), pool.Model())

	notifier, err := newNotifier(config, runLog)
	if err != nil {
		runLog.Fatal("creating the notifier", zap.Error(err))
	}

	analyzer, err := newAnalyzer(config, runLog)
	if err != nil {
		runLog.Fatal("creating the github client", zap.Error(err))
	}

	runnable, err := docqa.Build(docqa.Deps{
		Retriever: retrieval.NewRetriever(newIndexStore(config, runLog), pool, retrieval.ResumeIndex, runLog),
		Generator: pool,
		Analyzer:  analyzer,
		Notifier:  notifier,
		Policy: &docqa.ThresholdPolicy{
			Cutoff:    config.Alert.Cutoff,
			Inclusive: config.Alert.Inclusive,
		},
		TopK:           config.Index.TopK,
		MaxRetrievals:  config.Alert.MaxRetrievals,
		AlertRecipient: config.Alert.Recipient,
		AlertSubject:   config.Alert.Subject,
		Logger:         runLog,
	})
	if err != nil {
		runLog.Fatal("building the graph", zap.Error(err))
	}

	runLog.Info("starting the run", zap.String("question", question), zap.String("version", version))

	result, err := runnable.InvokeWithLogger(ctx, state.New(question), runLog)
	if err != nil {
		runLog.Fatal("running the graph", zap.Error(err), zap.Strings("path", result.Path()))
	}

	runLog.Info("run finished",
		zap.Strings("path", result.Path()),
		zap.Float64("metric", result.State.MetricValue),
		zap.Int("projects", len(result.State.SourceProjects)),
	)

	fmt.Println(result.State.Solution)
}

// questionFrom takes the question from the arguments or asks for it
// interactively.
func questionFrom(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}

	prompt := promptui.Prompt{
		Label: "Question",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("question must not be empty")
			}
			return nil
		},
	}

	answer, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}
