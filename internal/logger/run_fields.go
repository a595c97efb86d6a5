package logger

import "go.uber.org/zap"

const (
	// FieldRunID identifies one question run across all its log entries.
	FieldRunID = "run_id"
	// FieldCommand names the CLI command that started the run.
	FieldCommand = "command"
)

// RunFields returns the fields shared by every entry of one run.
func RunFields(runID, command string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRunID, Value: runID},
		StringField{Key: FieldCommand, Value: command},
	)
}

// ForRun attaches the run fields to the provided logger.
func ForRun(logger *zap.Logger, runID, command string) *zap.Logger {
	return WithFields(logger, RunFields(runID, command)...)
}
