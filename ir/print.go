package ir

import (
	"fmt"
	"strings"
)

// String renders the function in a stable textual form used by tests and
// debug dumps. There is no parser for this format.
func (f *Func) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s(", f.name)
	for i, p := range f.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("%" + p.name)
	}
	sb.WriteString("):\n")
	for _, blk := range f.blocks {
		fmt.Fprintf(&sb, "%s:\n", blk.name)
		for _, line := range BlockStrings(blk) {
			sb.WriteString("  " + line + "\n")
		}
	}
	return sb.String()
}

// BlockStrings returns one line per live instruction, terminator included.
func BlockStrings(b *Block) []string {
	var out []string
	for _, in := range b.Instrs() {
		out = append(out, InstrString(in))
	}
	if b.term != nil {
		out = append(out, InstrString(b.term))
	}
	return out
}

// InstrString renders a single instruction.
func InstrString(in Instr) string {
	switch v := in.(type) {
	case *Retain:
		return "retain " + operand(v, 0)
	case *Release:
		return "release " + operand(v, 0)
	case *Builtin:
		switch v.Kind {
		case GuaranteedBegin:
			return results(v) + "builtin guaranteed.begin(" + operandList(v) + ")"
		case GuaranteedEnd:
			return "builtin guaranteed.end(" + operandList(v) + ")"
		default:
			return results(v) + "builtin " + v.Name + "(" + operandList(v) + ")"
		}
	case *Extract:
		return fmt.Sprintf("%sextract %s, %d", results(v), operand(v, 0), v.Index)
	case *Apply:
		return results(v) + "apply " + v.Callee + "(" + operandList(v) + ")"
	case *PartialApply:
		return results(v) + "partial_apply " + v.Callee + "(" + operandList(v) + ")"
	case *DebugValue:
		return "debug_value " + operand(v, 0)
	case *Generic:
		return results(v) + v.Name + "(" + operandList(v) + ")"
	case *Branch:
		return "br " + v.Target.name
	case *CondBranch:
		return fmt.Sprintf("cond_br %s, %s, %s", operand(v, 0), v.Then.name, v.Else.name)
	case *Return:
		if len(v.Operands()) == 0 {
			return "return"
		}
		return "return " + operandList(v)
	}
	return "<unknown>"
}

func results(in Instr) string {
	rs := in.Results()
	if len(rs) == 0 {
		return ""
	}
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = "%" + r.name
	}
	return strings.Join(names, ", ") + " = "
}

func operand(in Instr, i int) string {
	return "%" + in.Operands()[i].name
}

func operandList(in Instr) string {
	ops := in.Operands()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = "%" + op.name
	}
	return strings.Join(names, ", ")
}
