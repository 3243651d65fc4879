// Package profile describes how a kind of source file is highlighted: the
// parser producing its syntax tree, the rule set classifying it, and style
// overrides.
package profile
