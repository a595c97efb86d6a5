package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env names an environment variable holding the secret. It is consulted
	// only when neither File nor Value are set.
	Env string
}

// Load returns the resolved secret value from the provided source. When File is
// set it takes precedence over Value. The returned secret is always trimmed. An
// error is returned when no source contains a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	if strings.TrimSpace(src.Value) == "" && src.File == "" && src.Env != "" {
		src.Value = os.Getenv(src.Env)
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}

// LoadMany resolves several sources of the same secret kind, for example a
// set of API keys used in rotation. Duplicates are dropped and order is kept.
// Unusable sources are skipped; an error is returned only when none resolve.
func LoadMany(name string, sources []Source) ([]string, error) {
	seen := make(map[string]struct{}, len(sources))
	secrets := make([]string, 0, len(sources))

	var lastErr error
	for i, src := range sources {
		if src.Name == "" {
			src.Name = fmt.Sprintf("%s #%d", name, i+1)
		}

		secret, err := Load(src)
		if err != nil {
			lastErr = err
			continue
		}

		if _, ok := seen[secret]; ok {
			continue
		}
		seen[secret] = struct{}{}
		secrets = append(secrets, secret)
	}

	if len(secrets) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("no usable %s: %w", name, lastErr)
		}
		return nil, fmt.Errorf("%s is not configured", name)
	}

	return secrets, nil
}

// Files turns a list of file paths into sources.
func Files(name string, files []string) []Source {
	sources := make([]Source, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			continue
		}
		sources = append(sources, Source{Name: name, File: f})
	}
	return sources
}
