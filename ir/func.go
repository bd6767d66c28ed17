package ir

import "fmt"

// Func is an ordered collection of basic blocks, the unit of one pass
// invocation. The first block created through the builder is the entry.
type Func struct {
	name   string
	params []*Value
	blocks []*Block
	nvals  int
	gen    int
}

// Name returns the function name.
func (f *Func) Name() string { return f.name }

// Params returns the parameter values.
func (f *Func) Params() []*Value { return f.params }

// Blocks returns the blocks in creation order.
func (f *Func) Blocks() []*Block { return f.blocks }

// Entry returns the entry block, nil for an empty function.
func (f *Func) Entry() *Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// Generation counts structural mutations of the function. Cached
// per-function analyses compare it against the value they captured to
// detect staleness.
func (f *Func) Generation() int { return f.gen }

func (f *Func) newValue(name string, def Instr) *Value {
	f.nvals++
	if name == "" {
		name = fmt.Sprintf("v%d", f.nvals)
	}
	return &Value{id: f.nvals, name: name, def: def}
}
