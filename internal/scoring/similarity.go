package scoring

import "math"

// epsilon keeps the cosine denominator non-zero for all-zero vectors.
const epsilon = 1e-8

// CosineSimilarity computes cos(a, b) in float64. Vectors must have equal length.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + epsilon)
}

// Scale maps a cosine similarity onto [0, 100], rounded to two decimals.
func Scale(cosine float64) float64 {
	cosine = clamp(cosine, -1, 1)
	return Round2(clamp((cosine+1)*50, 0, 100))
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
