package session

// Coordinates and angles travel as integer hundredths to keep frames small.

// Compress converts a float to its wire integer form.
func Compress(value float64) int {
	return int(0.5 + value*100)
}

// Decompress restores a wire integer to its float value.
func Decompress(value int) float64 {
	return float64(value) / 100
}
