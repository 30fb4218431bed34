package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vango-go/callbridge/pkg/gateway/realtime"
	"github.com/vango-go/callbridge/pkg/gateway/tools/adapters/azsearch"
)

// SearchExecutor answers knowledge queries with a source-tagged text block.
type SearchExecutor struct {
	search *azsearch.Client
}

func NewSearchExecutor(search *azsearch.Client) *SearchExecutor {
	return &SearchExecutor{search: search}
}

func (e *SearchExecutor) Name() string {
	return ToolSearch
}

func (e *SearchExecutor) Definition() realtime.Tool {
	return realtime.Tool{
		Type:        "function",
		Name:        ToolSearch,
		Description: "Search the knowledge base. Results are source chunks formatted as [source_id]: chunk text, one per line, each followed by a separator line.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (e *SearchExecutor) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var input struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("decode search arguments: %w", err)
	}

	// An empty result block means "no information found"; the model handles
	// that, so it is not an error here.
	block, err := e.search.Search(ctx, strings.TrimSpace(input.Query))
	if err != nil {
		return nil, fmt.Errorf("knowledge query failed: %w", err)
	}
	return block, nil
}
