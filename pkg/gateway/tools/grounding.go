package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vango-go/callbridge/pkg/gateway/realtime"
	"github.com/vango-go/callbridge/pkg/gateway/tools/adapters/azsearch"
)

// GroundingExecutor resolves the source identifiers the model claims to have
// used back into full records for citation.
type GroundingExecutor struct {
	search *azsearch.Client
}

func NewGroundingExecutor(search *azsearch.Client) *GroundingExecutor {
	return &GroundingExecutor{search: search}
}

func (e *GroundingExecutor) Name() string {
	return ToolReportGrounding
}

func (e *GroundingExecutor) Definition() realtime.Tool {
	return realtime.Tool{
		Type:        "function",
		Name:        ToolReportGrounding,
		Description: "Report the knowledge base sources that were used to answer, as the list of source ids from the search results.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sources": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Source ids actually used in the answer",
				},
			},
			"required": []string{"sources"},
		},
	}
}

// GroundingSource is one resolved citation record.
type GroundingSource struct {
	ID      string `json:"identifier"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GroundingReport is the tool result envelope. Sources the backend does not
// know are silently omitted.
type GroundingReport struct {
	Sources []GroundingSource `json:"sources"`
}

func (e *GroundingExecutor) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var input struct {
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("decode grounding arguments: %w", err)
	}

	docs, err := e.search.Lookup(ctx, input.Sources)
	if err != nil {
		return nil, fmt.Errorf("grounding lookup failed: %w", err)
	}

	report := GroundingReport{Sources: make([]GroundingSource, 0, len(docs))}
	for _, doc := range docs {
		report.Sources = append(report.Sources, GroundingSource{
			ID:      doc.ID,
			Title:   doc.Title,
			Content: doc.Content,
		})
	}
	return report, nil
}
