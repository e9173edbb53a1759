package bc

import (
	"strconv"
	"strings"

	"github.com/davincci9412/Cil-core/errors"
)

// ErrBadInvocation is returned by ParseInvocation for a malformed
// invocation string.
var ErrBadInvocation = errors.New("malformed contract invocation")

// ParseInvocation splits a "methodName(args...)" string into a
// method name and its raw, comma-separated argument substrings.
// Parentheses and double-quoted strings are balanced/respected so
// that an argument may itself contain commas (e.g. a nested call is
// not supported by the sandbox's grammar, but a quoted string
// argument is). An empty invocation string yields ("", nil, nil),
// which the caller (app.RunContract, §4.6 step 1) treats as a
// request to dispatch to the contract's `_default` method.
func ParseInvocation(invocation string) (method string, args []string, err error) {
	invocation = strings.TrimSpace(invocation)
	if invocation == "" {
		return "", nil, nil
	}

	open := strings.IndexByte(invocation, '(')
	if open < 0 || !strings.HasSuffix(invocation, ")") {
		return "", nil, errors.WithDetailf(ErrBadInvocation, "%q", invocation)
	}
	method = strings.TrimSpace(invocation[:open])
	if !isIdentifier(method) {
		return "", nil, errors.WithDetailf(ErrBadInvocation, "invalid method name %q", method)
	}

	body := invocation[open+1 : len(invocation)-1]
	args = splitArgs(body)
	return method, args, nil
}

func splitArgs(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	var args []string
	depth := 0
	inQuotes := false
	start := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '"' && (i == 0 || body[i-1] != '\\'):
			inQuotes = !inQuotes
		case inQuotes:
			// inside a quoted string, ignore structural characters
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(body[start:i]))
			start = i + 1
		}
	}
	args = append(args, strings.TrimSpace(body[start:]))
	return args
}

// ParseArgLiterals converts the raw substrings ParseInvocation
// produced into the sandbox's value domain: a decimal integer, a
// double-quoted string, or a true/false literal. Any substring that
// parses as none of those is malformed input, not a sandbox error.
func ParseArgLiterals(args []string) ([]interface{}, error) {
	out := make([]interface{}, len(args))
	for i, a := range args {
		v, err := parseArgLiteral(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseArgLiteral(a string) (interface{}, error) {
	switch {
	case a == "true":
		return true, nil
	case a == "false":
		return false, nil
	case len(a) >= 2 && a[0] == '"' && a[len(a)-1] == '"':
		return a[1 : len(a)-1], nil
	default:
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, errors.WithDetailf(ErrBadInvocation, "unparseable argument %q", a)
		}
		return n, nil
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
