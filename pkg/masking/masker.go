// Package masking provides secret redaction for error messages, activity
// event payloads, and HITL request descriptions. Spec §7: "secrets matching
// known credential names in configuration are replaced with a fixed mask
// token in messages."
package masking

// Masker is the interface for structure-aware maskers that need more than
// regex matching — e.g. parsing JSON/YAML and masking only known secret
// field names rather than sweeping the whole payload.
type Masker interface {
	// Name returns the unique identifier for this masker.
	Name() string

	// AppliesTo performs a cheap check on whether this masker should process
	// the data (string contains, not full parsing).
	AppliesTo(data string) bool

	// Mask applies masking logic and returns the masked result.
	// Must be defensive: return original data on parse/processing errors.
	Mask(data string) string
}

// MaskedValue is the fixed replacement token for a masked secret value.
const MaskedValue = "[MASKED]"
