package utils

// NormalizeMax scales the values of m in place so the largest becomes 1.
// Maps that are empty or whose maximum is not positive are left unchanged.
func NormalizeMax(m map[string]float64) {
	var maxVal float64
	for _, v := range m {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		return
	}
	for k, v := range m {
		m[k] = v / maxVal
	}
}
