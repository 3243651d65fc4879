// Package expr provides the CEL (Common Expression Language) environment used
// to select profiles for source files and to filter watch events.
//
// It adds functions for:
//   - File path operations (pathBase, pathDir, pathExt)
//   - Content inspection (shebang, firstLine)
//   - YAML value extraction (yamlPath)
//   - Filesystem event flags (op.has(fs.WRITE))
//
// Expressions compiled with [NewFileEnvironment] have access to variables:
//   - `file` (string): The source file path
//   - `dir` (string): The directory containing the file
//   - `content` (string): The source file content
//   - `op` (int): The filesystem event, zero outside of watch mode
package expr
