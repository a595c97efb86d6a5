package cmd

import (
	"context"
	"errors"
)

var errDescribeOnly = errors.New("graph built for description only")

// describeOnly satisfies the graph collaborators when the graph is only
// printed and never run.
type describeOnly struct{}

func (describeOnly) Search(context.Context, string, int) ([]string, error) {
	return nil, errDescribeOnly
}

func (describeOnly) GenerateContent(context.Context, string) (string, error) {
	return "", errDescribeOnly
}
