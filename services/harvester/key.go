package harvester

import (
	"strings"
)

// Dimension is one axis a query can be narrowed along. Dimensions are
// consumed in the fixed priority order state, county.
type Dimension string

const (
	DimState  Dimension = "state"
	DimCounty Dimension = "county"
)

type Binding struct {
	Dimension Dimension
	Value     string
}

// Key is an ordered set of dimension bindings identifying one node in
// the partition tree. Refinement copies, it never mutates a parent key.
type Key []Binding

func (k Key) Bound(d Dimension) (string, bool) {
	for _, b := range k {
		if b.Dimension == d {
			return b.Value, true
		}
	}
	return "", false
}

func (k Key) With(d Dimension, value string) Key {
	child := make(Key, len(k), len(k)+1)
	copy(child, k)
	return append(child, Binding{Dimension: d, Value: value})
}

// Name joins the bound values in priority order, used to derive result
// set filenames like "NY-Albany".
func (k Key) Name(sep string) string {
	values := make([]string, len(k))
	for i, b := range k {
		values[i] = b.Value
	}
	return strings.Join(values, sep)
}

func (k Key) String() string {
	var out strings.Builder
	for i, b := range k {
		if i > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(string(b.Dimension))
		out.WriteByte('=')
		out.WriteString(b.Value)
	}
	return out.String()
}

// Refiner narrows a key along one dimension. It returns nil when its
// dimension is already bound or no values are valid in the parent's
// scope; the partitioner tries refiners in order and is otherwise
// agnostic of what the dimensions mean.
type Refiner func(parent Key) []Key

// CountyRefiner fans a state-bound key out to every county valid in
// that state.
func CountyRefiner(counties map[string][]string) Refiner {
	return func(parent Key) []Key {
		if _, bound := parent.Bound(DimCounty); bound {
			return nil
		}
		state, bound := parent.Bound(DimState)
		if !bound {
			return nil
		}

		var children []Key
		for _, county := range counties[state] {
			children = append(children, parent.With(DimCounty, county))
		}
		return children
	}
}
