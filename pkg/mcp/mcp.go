// Package mcp serves the highlighting pipeline over the Model Context
// Protocol.
package mcp

const (
	name         = "crumbs"
	instructions = `MCP Server 'crumbs' highlights source files with breadcrumb rule sets and shows the syntax tree paths of their tokens.

When to use these tools:
- Checking which highlight group a rule set assigns to each token of a file
- Finding the breadcrumb path of a token, to write or fix a rule set pattern
- Observing changes after modifying a rule set or a source file

Workflow:
1. Use 'breadcrumbs' with a file path and the text of a token to see its breadcrumb paths
2. Write or edit patterns in the rule set, using the labels from those paths
3. Use 'highlight' on the same file, optionally with 'rules' pointing at the edited rule set, to check the resulting spans
`

	// Maximum number of spans or matches returned by a single tool call.
	maxResults = 2000
)
