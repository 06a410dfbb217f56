package match

import (
	"math"

	"github.com/andresmejia3/samaritan/internal/types"
)

// DefaultTolerance is the distance at or below which two dlib descriptors are
// considered the same person.
const DefaultTolerance = 0.6

// Distance returns the Euclidean distance between two descriptors.
// Mismatched lengths return +Inf so they can never match.
func Distance(a, b types.Descriptor) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Compare checks candidate against every known descriptor and returns a match
// vector in the same order as known.
func Compare(known []types.Descriptor, candidate types.Descriptor, tolerance float64) []bool {
	matches := make([]bool, len(known))
	for i, k := range known {
		matches[i] = Distance(k, candidate) <= tolerance
	}
	return matches
}

// CompareFunc is the comparator contract used by the Resolver.
type CompareFunc func(known []types.Descriptor, candidate types.Descriptor, tolerance float64) []bool

// Resolver maps descriptors to enrolled identities.
//
// Policy: first match in enrollment order wins. The lowest-index enrolled face
// whose descriptor matches is chosen even if a later one is closer.
type Resolver struct {
	faces     []types.EnrolledFace
	known     []types.Descriptor
	tolerance float64
	compare   CompareFunc
}

// NewResolver builds a resolver over an immutable enrollment cache.
// A nil compare uses Compare.
func NewResolver(faces []types.EnrolledFace, tolerance float64, compare CompareFunc) *Resolver {
	if compare == nil {
		compare = Compare
	}
	known := make([]types.Descriptor, len(faces))
	for i, f := range faces {
		known[i] = f.Descriptor
	}
	return &Resolver{faces: faces, known: known, tolerance: tolerance, compare: compare}
}

// Size returns the number of enrolled faces.
func (r *Resolver) Size() int { return len(r.faces) }

// Resolve returns the identity for one descriptor, or the unknown identity.
func (r *Resolver) Resolve(d types.Descriptor) types.Identity {
	for i, ok := range r.compare(r.known, d, r.tolerance) {
		if ok {
			f := r.faces[i]
			return types.Identity{Label: f.DisplayName, Role: f.Role, Color: f.RoleColor, Index: i}
		}
	}
	return Unknown()
}

// ResolveAll resolves every descriptor, preserving order.
func (r *Resolver) ResolveAll(ds []types.Descriptor) []types.Identity {
	out := make([]types.Identity, len(ds))
	for i, d := range ds {
		out[i] = r.Resolve(d)
	}
	return out
}

// Unknown is the identity of a face that matched nothing.
func Unknown() types.Identity {
	return types.Identity{Label: types.UnknownLabel, Role: types.RoleNone, Color: types.UnknownColor, Index: -1}
}
