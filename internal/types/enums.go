package types

// Severity grades an alert by event magnitude.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityStrong   Severity = "strong"
	SeverityMajor    Severity = "major"
)

// SeverityForMagnitude maps a magnitude to its Severity grade.
func SeverityForMagnitude(mag float64) Severity {
	switch {
	case mag < 4.5:
		return SeverityMinor
	case mag < 6.0:
		return SeverityModerate
	case mag < 7.0:
		return SeverityStrong
	default:
		return SeverityMajor
	}
}

// String implements fmt.Stringer.
func (s Severity) String() string { return string(s) }
