// Package pricing maps request size to coin cost.
package pricing

// CharsPerExtraCoin is the prompt length step that adds one coin on top of
// the base cost.
const CharsPerExtraCoin = 200

// Cost returns the coin cost for a prompt of the given character length.
// cost = 1 + length/200, never below 1, monotonically non-decreasing.
func Cost(length int) int64 {
	if length <= 0 {
		return 1
	}
	return 1 + int64(length)/CharsPerExtraCoin
}
