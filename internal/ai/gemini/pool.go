package gemini

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

type member interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Pool spreads calls over several API keys in round-robin order. A call
// rejected for quota moves on to the next key; any other error is returned
// as is.
type Pool struct {
	members        []member
	next           atomic.Uint64
	model          string
	embeddingModel string
	logger         *zap.Logger
}

// NewPool builds one Generator per API key.
func NewPool(ctx context.Context, apiKeys []string, opts Options, log *zap.Logger) (*Pool, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("at least one gemini api key is required")
	}

	members := make([]member, 0, len(apiKeys))
	var model, embeddingModel string
	for _, key := range apiKeys {
		g, err := NewGenerator(ctx, key, opts, log)
		if err != nil {
			return nil, err
		}
		model, embeddingModel = g.Model(), g.EmbeddingModel()
		members = append(members, g)
	}

	p := newPool(members, model, log)
	p.embeddingModel = embeddingModel
	return p, nil
}

func newPool(members []member, model string, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{members: members, model: model, logger: log}
}

func (p *Pool) Size() int { return len(p.members) }

func (p *Pool) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return rotate(p, func(m member) (string, error) {
		return m.GenerateContent(ctx, prompt)
	})
}

func (p *Pool) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return rotate(p, func(m member) ([][]float32, error) {
		return m.Embed(ctx, texts)
	})
}

func (p *Pool) Provider() string { return provider }

func (p *Pool) Model() string { return p.model }

func (p *Pool) EmbeddingModel() string { return p.embeddingModel }

func rotate[T any](p *Pool, call func(member) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)

	if len(p.members) == 0 {
		return zero, errors.New("gemini pool is empty")
	}

	start := p.next.Add(1) - 1
	for i := 0; i < len(p.members); i++ {
		idx := int((start + uint64(i)) % uint64(len(p.members)))

		var result T
		result, err = call(p.members[idx])
		if err == nil {
			return result, nil
		}
		if !IsQuotaExhausted(err) {
			return zero, err
		}

		p.logger.Warn("api key quota exhausted, rotating", zap.Int("key_index", idx), zap.Error(err))
	}

	return zero, err
}
