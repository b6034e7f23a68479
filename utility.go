package fat32

// asciiFromPadded returns the string form of a space-padded on-disk ASCII
// field (OEM name, volume label). Trailing padding is removed; embedded
// spaces are kept.
func asciiFromPadded(raw []byte) string {
	end := len(raw)
	for end > 0 && raw[end-1] == ' ' {
		end--
	}

	return string(raw[:end])
}
