// Package contract defines the persisted contract object (spec
// §4.5-§4.6): an address, a deep snapshot of its instance data, and
// the source text of its exported methods.
package contract

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/davincci9412/Cil-core/bc"
	"github.com/davincci9412/Cil-core/errors"
)

// Data is an opaque, deep value record: a nested map of strings to
// primitive, record, or list values (spec §9's Design Notes, resolving
// the "dynamic class reflection" open question for a statically typed
// implementation). Permitted leaf value types are int64, uint64,
// string, bool, Data, and []interface{} of any of those.
type Data map[string]interface{}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	return cloneValue(d).(Data)
}

func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case Data:
		c := make(Data, len(v))
		for k, vv := range v {
			c[k] = cloneValue(vv)
		}
		return c
	case []interface{}:
		c := make([]interface{}, len(v))
		for i, vv := range v {
			c[i] = cloneValue(vv)
		}
		return c
	default:
		return v
	}
}

// Contract is the persisted object stored in a Patch and, eventually,
// in Storage: an address, a data snapshot, the source of its
// exported methods, and the id of the witness group that deployed it
// (spec §3).
type Contract struct {
	Address bc.Address
	Data    Data
	Code    string // method sources joined by bc.ContractMethodSeparator
	GroupID [16]byte
}

// ErrInvalidMethodName is returned by ValidateMethodSource when a
// method name contains characters outside [A-Za-z_][A-Za-z0-9_]*.
var ErrInvalidMethodName = errors.New("invalid method name")

// ErrSeparatorInjection is returned by ValidateMethodSource when user
// source contains the literal separator used to join persisted
// method bodies, which would let a deployer inject a forged
// additional "method" into Contract.Code (spec §9's open question on
// the splice-based reconstruction in RunContract).
var ErrSeparatorInjection = errors.New("contract source contains reserved method separator")

// ValidateMethodSource checks a method's name and body before it is
// ever persisted to Contract.Code, guarding the splice-based
// reconstruction app.RunContract performs later.
func ValidateMethodSource(name, body string) error {
	if !isIdentifier(name) {
		return errors.WithDetailf(ErrInvalidMethodName, "%q", name)
	}
	if strings.Contains(body, bc.ContractMethodSeparator) {
		return errors.WithDetailf(ErrSeparatorInjection, "method %q", name)
	}
	return nil
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

// JoinMethods joins method source texts with bc.ContractMethodSeparator,
// the inverse of app.RunContract's splice step.
func JoinMethods(sources []string) string {
	return strings.Join(sources, bc.ContractMethodSeparator)
}

// SplitMethods is the inverse of JoinMethods.
func SplitMethods(code string) []string {
	if code == "" {
		return nil
	}
	return strings.Split(code, bc.ContractMethodSeparator)
}

// HashData writes a deterministic byte representation of d to w, for
// use by non-cryptographic fingerprinting (patch.Merge's conflict
// detection); it is never used anywhere consensus-security-relevant.
func HashData(w io.Writer, d Data) {
	writeValue(w, d)
}

func writeValue(w io.Writer, v interface{}) {
	switch v := v.(type) {
	case Data:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			io.WriteString(w, k)
			io.WriteString(w, "=")
			writeValue(w, v[k])
			io.WriteString(w, ";")
		}
	case []interface{}:
		for _, vv := range v {
			writeValue(w, vv)
			io.WriteString(w, ",")
		}
	default:
		fmt.Fprintf(w, "%v", v)
	}
}
