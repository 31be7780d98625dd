package utils

// MaskSecret keeps the first 4 characters of a credential for logging. Empty stays empty.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "*****"
	}
	return s[:4] + "*****"
}
