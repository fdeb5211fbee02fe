package solver

// Coefficients builds the default a_coefs table of the equidistant explicit
// sequence: method m places its stages at the nodes j/m of the unit step,
// and the row for stage s integrates the interpolation polynomial through
// the flux points at nodes 0..(s-1)/m from 0 to s/m. Row sums equal s/m.
// Method 1 is the explicit Euler step; the closing rows of the higher
// methods are open rules over the leading nodes (midpoint [0,1] for
// method 2, [1/4,0,3/4] for method 3), not the closed trapezoid family.
//
// The result is indexed a[idx_method-1][idx_stage-1][idx_point]; rows carry
// exactly idx_stage entries.
func Coefficients(nmbMethods int) [][][]float64 {
	a := make([][][]float64, nmbMethods)
	for m := 1; m <= nmbMethods; m++ {
		rows := make([][]float64, m)
		for s := 1; s <= m; s++ {
			nodes := make([]float64, s)
			for j := range nodes {
				nodes[j] = float64(j) / float64(m)
			}
			rows[s-1] = quadratureWeights(nodes, float64(s)/float64(m))
		}
		a[m-1] = rows
	}
	return a
}

// quadratureWeights integrates each Lagrange basis polynomial over the
// given nodes from 0 to c.
func quadratureWeights(nodes []float64, c float64) []float64 {
	weights := make([]float64, len(nodes))
	for j := range nodes {
		// Coefficients of the j-th basis polynomial, lowest power first.
		poly := []float64{1}
		denom := 1.0
		for i, t := range nodes {
			if i == j {
				continue
			}
			poly = mulLinear(poly, -t)
			denom *= nodes[j] - t
		}
		integral := 0.0
		power := c
		for k, coef := range poly {
			integral += coef * power / float64(k+1)
			power *= c
		}
		weights[j] = integral / denom
	}
	return weights
}

// mulLinear multiplies a polynomial by (x + b).
func mulLinear(poly []float64, b float64) []float64 {
	out := make([]float64, len(poly)+1)
	for i, coef := range poly {
		out[i] += coef * b
		out[i+1] += coef
	}
	return out
}
