package ir

// Value is produced by at most one instruction and consumed by any number of
// later instructions through operand slots. Function parameters are values
// with no defining instruction.
type Value struct {
	id   int
	name string
	def  Instr
	uses []Use
}

// Use identifies a single operand slot of an instruction reading a value.
type Use struct {
	User  Instr
	Index int
}

// Name returns the printable name of the value, "x" for a parameter named x
// or "v3" for the third value created in the function.
func (v *Value) Name() string { return v.name }

// Def returns the instruction producing this value, or nil for parameters.
func (v *Value) Def() Instr { return v.def }

// Uses returns the operand slots currently reading this value. The slice is
// owned by the value and must not be mutated by callers.
func (v *Value) Uses() []Use { return v.uses }

func (v *Value) addUse(user Instr, idx int) {
	v.uses = append(v.uses, Use{User: user, Index: idx})
}

func (v *Value) removeUse(user Instr, idx int) {
	for i, u := range v.uses {
		if u.User == user && u.Index == idx {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

// ReplaceAllUses rewires every use of old to read repl instead. Use lists on
// both values are kept consistent.
func ReplaceAllUses(old, repl *Value) {
	if old == repl {
		return
	}
	for _, u := range old.uses {
		u.User.base().operands[u.Index] = repl
		repl.uses = append(repl.uses, u)
	}
	old.uses = nil
}
