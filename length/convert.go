package length

// Convert converts q from one unit to another through the metre. Converting
// to the same unit returns q unchanged. Convert panics if either unit is not
// valid.
func Convert(q float64, from, to Unit) float64 {
	if from == to && from.Valid() {
		return q
	}
	return q * from.Factor() / to.Factor()
}

// Swap returns its arguments in reverse order.
func Swap(a, b Unit) (Unit, Unit) {
	return b, a
}
