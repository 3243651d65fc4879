// Package execs runs external programs as defined by configuration.
//
// It is used by the event stream parser to run external tree producers,
// which receive the source on stdin and write traversal events to stdout.
package execs
