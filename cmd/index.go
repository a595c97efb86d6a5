package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/ai/gemini"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/profile"
	"github.com/spigell/resume-agent/internal/prompts"
	"github.com/spigell/resume-agent/internal/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the embedding indexes used to answer questions",
}

var indexResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Index the stored profile, or a plain text resume given with --from-text",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		runIndex("index resume", func(_ context.Context, config *Config, _ *gemini.Pool, _ *zap.Logger) ([]string, error) {
			fromText, _ := cmd.Flags().GetString("from-text")
			return resumeChunks(config, fromText)
		}, retrieval.ResumeIndex)
	},
}

var indexProjectsCmd = &cobra.Command{
	Use:   "projects [github-user-or-url]",
	Short: "Index the public GitHub projects of the profile owner or of the given user",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		runIndex("index projects", func(ctx context.Context, config *Config, _ *gemini.Pool, log *zap.Logger) ([]string, error) {
			return projectSummaries(ctx, config, args, log)
		}, retrieval.ProjectIndex)
	},
}

func init() {
	indexResumeCmd.Flags().String("from-text", "", "plain text resume file to index instead of the stored profile")

	indexCmd.AddCommand(indexResumeCmd, indexProjectsCmd)
	rootCmd.AddCommand(indexCmd)
}

type textSource func(ctx context.Context, config *Config, pool *gemini.Pool, log *zap.Logger) ([]string, error)

func runIndex(command string, source textSource, name string) {
	base, config := setup()
	runLog := logger.ForRun(base, uuid.NewString(), command)

	ctx, cancel := withTimeout(config)
	defer cancel()

	pool, err := newAI(ctx, config, runLog)
	if err != nil {
		runLog.Fatal("creating the ai client", zap.Error(err))
	}

	texts, err := source(ctx, config, pool, runLog)
	if err != nil {
		runLog.Fatal("collecting texts to index", zap.String("index", name), zap.Error(err))
	}

	idx, err := retrieval.Build(ctx, pool, name, pool.EmbeddingModel(), texts)
	if err != nil {
		runLog.Fatal("building the index", zap.String("index", name), zap.Error(err))
	}

	if err := newIndexStore(config, runLog).Save(idx); err != nil {
		runLog.Fatal("saving the index", zap.String("index", name), zap.Error(err))
	}

	runLog.Info("index saved", zap.String("index", name), zap.Int("chunks", len(idx.Chunks)), zap.String("model", idx.Model))
	fmt.Printf("%s index: %d chunks\n", name, len(idx.Chunks))
}

func resumeChunks(config *Config, fromText string) ([]string, error) {
	var text string
	if fromText = strings.TrimSpace(fromText); fromText != "" {
		data, err := os.ReadFile(fromText)
		if err != nil {
			return nil, fmt.Errorf("reading resume text: %w", err)
		}
		text = string(data)
	} else {
		p, _, err := newProfileStore(config).Load(config.Profile.Key)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				return nil, fmt.Errorf("%w: import one with `%s profile import <file>` or pass --from-text", err, app)
			}
			return nil, err
		}
		text = profile.Render(p)
	}

	chunks := retrieval.SplitText(text, config.Index.ChunkSize, config.Index.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, errors.New("resume text is empty")
	}
	return chunks, nil
}

func projectSummaries(ctx context.Context, config *Config, args []string, log *zap.Logger) ([]string, error) {
	var target string
	if len(args) > 0 {
		target = args[0]
	} else {
		p, _, err := newProfileStore(config).Load(config.Profile.Key)
		if err != nil {
			return nil, fmt.Errorf("loading profile for its github url: %w", err)
		}
		target = p.GitHub
	}

	if strings.TrimSpace(target) == "" {
		return nil, errors.New("no github user given and the profile has no github url")
	}

	analyzer, err := newAnalyzer(config, log)
	if err != nil {
		return nil, err
	}

	projects, err := analyzer.Analyze(ctx, target)
	if err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, prompts.ProjectSummary(p))
	}
	return summaries, nil
}
