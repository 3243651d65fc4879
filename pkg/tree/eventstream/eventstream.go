// Package eventstream implements a line protocol for traversal events, so
// that any external program can act as a tree producer.
//
// Each line is one event:
//
//	enter <label> [<offset> <length>]
//	leave <label>
//
// Offsets and lengths are in bytes. Blank lines and lines starting with '#'
// are ignored, as is leading whitespace.
package eventstream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/macropower/crumbs/pkg/execs"
	"github.com/macropower/crumbs/pkg/tree"
)

var (
	// ErrSyntax is returned for malformed event lines.
	ErrSyntax = errors.New("syntax error")

	// ErrUnbalanced is returned when leave events do not pair with enter
	// events.
	ErrUnbalanced = errors.New("unbalanced events")
)

const (
	verbEnter = "enter"
	verbLeave = "leave"
)

// Decode reads events from r and replays them into v. Nesting is checked
// before events reach v, so v never sees an unbalanced leave.
func Decode(r io.Reader, v tree.Visitor) error {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var open []string

	line := 0
	for s.Scan() {
		line++

		fields := strings.Fields(s.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		n, err := parseEvent(fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		switch fields[0] {
		case verbEnter:
			open = append(open, n.Label())
			v.Enter(n)
		case verbLeave:
			if len(open) == 0 || open[len(open)-1] != n.Label() {
				return fmt.Errorf("line %d: %w: leave %q, open %s", line, ErrUnbalanced, n.Label(), describe(open))
			}

			open = open[:len(open)-1]
			v.Leave(n)
		}
	}

	err := s.Err()
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	if len(open) > 0 {
		return fmt.Errorf("%w: %s left open at end of stream", ErrUnbalanced, describe(open))
	}

	return nil
}

func parseEvent(fields []string) (tree.Node, error) {
	switch fields[0] {
	case verbEnter:
		switch len(fields) {
		case 2:
			return tree.Label(fields[1]), nil
		case 4:
			off, err := strconv.Atoi(fields[2])
			if err != nil || off < 0 {
				return nil, fmt.Errorf("%w: invalid offset %q", ErrSyntax, fields[2])
			}

			length, err := strconv.Atoi(fields[3])
			if err != nil || length < 0 {
				return nil, fmt.Errorf("%w: invalid length %q", ErrSyntax, fields[3])
			}

			return tree.NewLeaf(fields[1], off, length), nil
		}

		return nil, fmt.Errorf("%w: enter takes a label and an optional offset and length", ErrSyntax)
	case verbLeave:
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: leave takes a label", ErrSyntax)
		}

		return tree.Label(fields[1]), nil
	}

	return nil, fmt.Errorf("%w: unknown event %q", ErrSyntax, fields[0])
}

func describe(open []string) string {
	if len(open) == 0 {
		return "nothing"
	}

	return strconv.Quote(strings.Join(open, " "))
}

// Encoder is a [tree.Visitor] that writes events in the line protocol,
// indented by depth.
type Encoder struct {
	w     io.Writer
	err   error
	depth int
}

// NewEncoder creates a new [Encoder] writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Enter implements [tree.Visitor].
func (e *Encoder) Enter(n tree.Node) {
	if loc, ok := n.Locate(); ok {
		e.printf("%s %s %d %d", verbEnter, n.Label(), loc.Offset, loc.Len)
	} else {
		e.printf("%s %s", verbEnter, n.Label())
	}

	e.depth++
}

// Leave implements [tree.Visitor].
func (e *Encoder) Leave(n tree.Node) {
	e.depth--
	e.printf("%s %s", verbLeave, n.Label())
}

// Err returns the first write error, if any.
func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) printf(format string, args ...any) {
	if e.err != nil {
		return
	}

	_, e.err = fmt.Fprintf(e.w, "%s"+format+"\n", append([]any{strings.Repeat("  ", max(e.depth, 0))}, args...)...)
}

// Parser implements [tree.Parser] by running an external command with the
// source on stdin and decoding the events it writes to stdout.
type Parser struct {
	// Environ is the caller environment the command's environment is
	// built from. If nil, [os.Environ] is used.
	Environ []string
	Command execs.Command
}

// New creates a new [Parser] running cmd.
func New(cmd execs.Command) *Parser {
	return &Parser{Command: cmd}
}

// Parse implements [tree.Parser].
func (p *Parser) Parse(ctx context.Context, src []byte, v tree.Visitor) error {
	env := p.Environ
	if env == nil {
		env = os.Environ()
	}

	out, err := p.Command.Run(ctx, env, src)
	if err != nil {
		return err
	}

	err = Decode(bytes.NewReader(out), v)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Command.String(), err)
	}

	return nil
}
