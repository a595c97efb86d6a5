package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/agentic"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/retrieval"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Route a question to the resume or project index, answer it and self-check the answer",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		query(args)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func query(args []string) {
	base, config := setup()

	question, err := questionFrom(args)
	if err != nil {
		base.Fatal("reading the question", zap.Error(err))
	}

	runLog := logger.ForRun(base, uuid.NewString(), "query")

	ctx, cancel := withTimeout(config)
	defer cancel()

	pool, err := newAI(ctx, config, runLog)
	if err != nil {
		runLog.Fatal("creating the ai client", zap.Error(err))
	}
	runLog = logger.WithCommonFields(runLog, pool.Provider(), pool.Model())

	notifier, err := newNotifier(config, runLog)
	if err != nil {
		runLog.Fatal("creating the notifier", zap.Error(err))
	}

	store := newIndexStore(config, runLog)

	pipeline, err := agentic.New(agentic.Config{
		Generator: pool,
		Sources: map[string]agentic.Searcher{
			retrieval.ResumeIndex:  retrieval.NewRetriever(store, pool, retrieval.ResumeIndex, runLog),
			retrieval.ProjectIndex: retrieval.NewRetriever(store, pool, retrieval.ProjectIndex, runLog),
		},
		TopK:                config.Index.TopK,
		Profiles:            newProfileStore(config),
		ProfileKey:          config.Profile.Key,
		MergeProfileContext: config.Query.MergeProfileContext,
		Notifier:            notifier,
		MeetingRecipient:    config.Query.MeetingRecipient,
		MeetingSubject:      config.Query.MeetingSubject,
		Logger:              runLog,
	})
	if err != nil {
		runLog.Fatal("creating the pipeline", zap.Error(err))
	}

	result, err := pipeline.Run(ctx, question)
	if err != nil {
		runLog.Fatal("answering the question", zap.Error(err))
	}

	runLog.Info("query finished",
		zap.String("source", result.Source.String()),
		zap.Bool("passed", result.Passed),
		zap.Bool("revised", result.Revised),
	)

	fmt.Println(result.Answer)
}
