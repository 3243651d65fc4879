package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/crumbs/pkg/syntax"
)

// HighlightParams defines parameters for the highlight tool.
type HighlightParams struct {
	Path    string `json:"path"              jsonschema:"the source file to highlight, relative to the project root"`
	Profile string `json:"profile,omitempty" jsonschema:"a profile name to use instead of selecting one by the configured rules"`
	Rules   string `json:"rules,omitempty"   jsonschema:"a rule set file, or builtin:<name>, to use instead of the profile's rule set"`
	Group   string `json:"group,omitempty"   jsonschema:"only return spans of this group"`
}

// HighlightResult contains the result of highlighting a file.
type HighlightResult struct {
	Path      string        `json:"path"`
	Profile   string        `json:"profile"`
	RuleSet   string        `json:"ruleset"`
	Message   string        `json:"message"`
	Spans     []syntax.Span `json:"spans"`
	SpanCount int           `json:"spanCount"`
	Truncated bool          `json:"truncated,omitempty"`
}

func (s *Server) handleHighlight(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	params HighlightParams,
) (*mcp.CallToolResult, HighlightResult, error) {
	var result HighlightResult

	path, err := s.resolve(params.Path)
	if err != nil {
		return nil, result, err
	}

	r, err := s.runnerFor(params.Profile, params.Rules)
	if err != nil {
		return nil, result, err
	}

	content, err := readSource(path)
	if err != nil {
		return nil, result, err
	}

	pl, spans, err := r.Highlight(ctx, path, content)
	if err != nil {
		return nil, result, fmt.Errorf("highlight: %w", err)
	}

	result.Path = params.Path
	result.Profile = pl.ProfileName
	result.RuleSet = pl.Profile.RuleSet
	if pl.RuleSetPath != "" {
		result.RuleSet = pl.RuleSetPath
	}

	result.Spans = make([]syntax.Span, 0, min(len(spans), maxResults))
	for _, span := range spans {
		if params.Group != "" && span.Group != params.Group {
			continue
		}

		result.SpanCount++
		if len(result.Spans) == maxResults {
			result.Truncated = true

			continue
		}

		result.Spans = append(result.Spans, span)
	}

	result.Message = fmt.Sprintf("Found %d spans using profile %q.", result.SpanCount, result.Profile)

	var records strings.Builder
	records.WriteString(result.Message)
	records.WriteString("\n")

	for _, span := range result.Spans {
		records.WriteString(span.String())
		records.WriteString("\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: records.String()},
		},
	}, result, nil
}
