package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/crumbs/pkg/highlight"
)

// BreadcrumbsParams defines parameters for the breadcrumbs tool.
type BreadcrumbsParams struct {
	Path    string `json:"path"              jsonschema:"the source file to parse, relative to the project root"`
	Text    string `json:"text"              jsonschema:"the token text to look for"`
	Profile string `json:"profile,omitempty" jsonschema:"a profile name to use instead of selecting one by the configured rules"`
	Fuzzy   bool   `json:"fuzzy,omitempty"   jsonschema:"match tokens containing the characters of text in order"`
}

// BreadcrumbsResult contains the breadcrumb paths of matching tokens.
type BreadcrumbsResult struct {
	Path       string            `json:"path"`
	Profile    string            `json:"profile"`
	Message    string            `json:"message"`
	Matches    []highlight.Match `json:"matches"`
	MatchCount int               `json:"matchCount"`
	Truncated  bool              `json:"truncated,omitempty"`
}

func (s *Server) handleBreadcrumbs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	params BreadcrumbsParams,
) (*mcp.CallToolResult, BreadcrumbsResult, error) {
	var result BreadcrumbsResult

	path, err := s.resolve(params.Path)
	if err != nil {
		return nil, result, err
	}

	r, err := s.runnerFor(params.Profile, "")
	if err != nil {
		return nil, result, err
	}

	content, err := readSource(path)
	if err != nil {
		return nil, result, err
	}

	profileName, _, err := r.FindProfile(path, content)
	if err != nil {
		return nil, result, err //nolint:wrapcheck // Names the path.
	}

	crumbs, err := r.Breadcrumbs(ctx, path, content)
	if err != nil {
		return nil, result, fmt.Errorf("breadcrumbs: %w", err)
	}

	matches, err := highlight.Find(crumbs, content, params.Text, params.Fuzzy)
	if err != nil {
		return nil, result, fmt.Errorf("find %q: %w", params.Text, err)
	}

	result.Path = params.Path
	result.Profile = profileName
	result.MatchCount = len(matches)
	result.Matches = matches
	if len(matches) > maxResults {
		result.Matches = matches[:maxResults]
		result.Truncated = true
	}

	result.Message = fmt.Sprintf("Found %d tokens matching %q.", result.MatchCount, params.Text)

	var out strings.Builder
	out.WriteString(result.Message)
	out.WriteString("\n")

	for _, m := range result.Matches {
		fmt.Fprintf(&out, "\n%d:%d %s\n", m.Line, m.Col, m.Path)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: out.String()},
		},
	}, result, nil
}
