// Package fixtures generates sample layers and random operation sequences.
package fixtures

import (
	"fmt"
	"math/rand"

	"github.com/jask/layerdesk/internal/layer"
)

// SampleNames are typical CAD layer names.
var SampleNames = []string{"Wall", "Door", "Window", "Furniture", "Dimensions", "Grid", "Annotations"}

// OpKind names a controller operation.
type OpKind string

const (
	OpCreate        OpKind = "create"
	OpImport        OpKind = "import"
	OpDelete        OpKind = "delete"
	OpSelect        OpKind = "select"
	OpClear         OpKind = "clear"
	OpSetActive     OpKind = "setActive"
	OpToggleVisible OpKind = "toggleVisible"
)

var opKinds = []OpKind{OpCreate, OpImport, OpDelete, OpSelect, OpClear, OpSetActive, OpToggleVisible}

// Op is one step of a generated sequence. Rows are picked against an upper
// bound and reduced modulo the live collection size when the op is applied.
type Op struct {
	Kind    OpKind
	Rows    []int
	Name    string
	Confirm bool
}

// Ops returns n random operations drawn from r.
func Ops(r *rand.Rand, n int) []Op {
	out := make([]Op, 0, n)
	for i := 0; i < n; i++ {
		op := Op{Kind: opKinds[r.Intn(len(opKinds))], Confirm: r.Intn(4) != 0}
		switch op.Kind {
		case OpImport:
			op.Name = SampleNames[r.Intn(len(SampleNames))]
			if r.Intn(3) == 0 {
				op.Name = fmt.Sprintf("%s %d", op.Name, r.Intn(5))
			}
		case OpSelect:
			for j, k := 0, r.Intn(3); j <= k; j++ {
				op.Rows = append(op.Rows, r.Intn(16))
			}
		case OpSetActive, OpToggleVisible:
			op.Rows = []int{r.Intn(16)}
		}
		out = append(out, op)
	}
	return out
}

// Candidates builds import candidates for names, in order.
func Candidates(names ...string) []*layer.Layer {
	out := make([]*layer.Layer, 0, len(names))
	for i, n := range names {
		out = append(out, layer.New(n, Palette[i%len(Palette)]))
	}
	return out
}

// Palette is a set of distinguishable layer colors.
var Palette = []string{"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4", "#42d4f4"}

// Rows reduces rows modulo size.
func Rows(rows []int, size int) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r%size)
	}
	return out
}
