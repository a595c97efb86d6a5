// Package ai declares the model capabilities the agent depends on.
package ai

import "context"

// Generator turns a prompt into text. It is used for classification,
// extraction, answering and grading alike.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Described is implemented by generators that can name their backing model
// for log fields.
type Described interface {
	Provider() string
	Model() string
}
