package sandbox

import (
	"fmt"
	"strings"
)

// printMethod renders a parsed method back to source text. Doing
// this from the AST, rather than slicing the original source by byte
// offset, guarantees the persisted method source is always exactly
// what this sandbox's own parser will accept when it is later
// spliced back into a reconstructed class body (app.RunContract,
// spec §4.6 step 2).
func printMethod(m *methodDecl) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s){", m.name, strings.Join(m.params, ","))
	for _, s := range m.body {
		printStmt(&b, s)
	}
	b.WriteString("}")
	return b.String()
}

func printStmt(b *strings.Builder, s stmt) {
	switch s := s.(type) {
	case returnStmt:
		b.WriteString("return")
		if s.value != nil {
			b.WriteString(" ")
			printExpr(b, s.value)
		}
		b.WriteString(";")
	case superCallStmt:
		b.WriteString("super(")
		printArgs(b, s.args)
		b.WriteString(");")
	case ifStmt:
		b.WriteString("if(")
		printExpr(b, s.cond)
		b.WriteString("){")
		for _, st := range s.then {
			printStmt(b, st)
		}
		b.WriteString("}")
		if s.els_ != nil {
			b.WriteString("else{")
			for _, st := range s.els_ {
				printStmt(b, st)
			}
			b.WriteString("}")
		}
	case assignStmt:
		printExpr(b, s.target)
		b.WriteString(s.op)
		printExpr(b, s.value)
		b.WriteString(";")
	case exprStmt:
		printExpr(b, s.value)
		b.WriteString(";")
	}
}

func printArgs(b *strings.Builder, args []expr) {
	for i, a := range args {
		if i > 0 {
			b.WriteString(",")
		}
		printExpr(b, a)
	}
}

func printExpr(b *strings.Builder, e expr) {
	switch e := e.(type) {
	case numberExpr:
		fmt.Fprintf(b, "%d", e.value)
	case stringExpr:
		fmt.Fprintf(b, "%q", e.value)
	case boolExpr:
		fmt.Fprintf(b, "%t", e.value)
	case identExpr:
		b.WriteString(e.name)
	case thisExpr:
		b.WriteString("this")
	case memberExpr:
		printExpr(b, e.object)
		b.WriteString(".")
		b.WriteString(e.field)
	case callExpr:
		printExpr(b, e.callee)
		b.WriteString("(")
		printArgs(b, e.args)
		b.WriteString(")")
	case newExpr:
		b.WriteString("new ")
		b.WriteString(e.class)
		b.WriteString("(")
		printArgs(b, e.args)
		b.WriteString(")")
	case unaryExpr:
		b.WriteString(e.op)
		printExpr(b, e.operand)
	case binaryExpr:
		b.WriteString("(")
		printExpr(b, e.left)
		b.WriteString(e.op)
		printExpr(b, e.right)
		b.WriteString(")")
	}
}
