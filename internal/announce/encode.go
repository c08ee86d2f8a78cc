package announce

// EncodeDistinct returns candidate unless it equals current, in which case it
// returns candidate with a leading line break so the write still registers as
// a change.
func EncodeDistinct(candidate, current string) string {
	if candidate != current {
		return candidate
	}
	return "\n" + candidate
}
