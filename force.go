package eclipse

// PairwiseForce returns the gravitational force exerted on a by b, scaled by g.
// Coincident bodies exert no force on each other.
func PairwiseForce(a, b *Body, g float64) []float64 {
	return pairwiseForce(a.R, b.R, a.Mass, b.Mass, g)
}

func pairwiseForce(ra, rb []float64, ma, mb, g float64) []float64 {
	r := sub(rb, ra)
	rNorm := norm(r)
	if rNorm == 0 {
		return []float64{0, 0, 0}
	}
	return scaled(g*ma*mb/(rNorm*rNorm*rNorm), r)
}

// ForceModel aggregates Newtonian forces on the primaries.
type ForceModel struct {
	G float64
}

// Forces returns the total force on each primary whose positions are in R (same order as masses),
// from every other primary and from every auxiliary body. Each unordered primary pair is computed once.
func (f ForceModel) Forces(R [][]float64, masses []float64, aux []AuxBody) [][]float64 {
	forces := make([][]float64, len(R))
	for i := range forces {
		forces[i] = []float64{0, 0, 0}
	}
	for i := range R {
		for j := i + 1; j < len(R); j++ {
			F := pairwiseForce(R[i], R[j], masses[i], masses[j], f.G)
			for k := 0; k < 3; k++ {
				forces[i][k] += F[k]
				forces[j][k] -= F[k]
			}
		}
		for _, a := range aux {
			F := pairwiseForce(R[i], a.R, masses[i], a.Mass, f.G)
			for k := 0; k < 3; k++ {
				forces[i][k] += F[k]
			}
		}
	}
	return forces
}
