// Package rule selects the profile for a source file with CEL (Common
// Expression Language) expressions.
//
// The expressions have access to the file path, its directory and its
// content, allowing for flexible matching logic.
package rule
