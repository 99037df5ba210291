package utils

// SquaredL2 returns the squared Euclidean distance between a and b.
// Both slices must have the same length; the caller checks this.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
