package masking

import "sync"

// Service applies masking to arbitrary strings: structure-aware maskers run
// first (more specific), then a sweep of built-in regex patterns. Created
// once per process; thread-safe and stateless aside from compiled patterns.
//
// Grounded on pkg/masking/service.go's MaskingService, simplified from the
// teacher's MCP-server-scoped pattern-group resolution (which has no
// analogue in this domain) down to a single always-on built-in set plus
// any additionally registered Masker.
type Service struct {
	patterns map[string]*CompiledPattern
	maskers  []Masker
}

var (
	defaultOnce sync.Once
	defaultSvc  *Service
)

// Default returns the process-wide default masking service, built with the
// built-in pattern set and the structured-secret masker. Safe for
// concurrent use.
func Default() *Service {
	defaultOnce.Do(func() {
		defaultSvc = New()
	})
	return defaultSvc
}

// New constructs a Service with the built-in regex patterns and the
// structured-secret masker registered.
func New(extra ...Masker) *Service {
	s := &Service{
		patterns: compileBuiltinPatterns(),
		maskers:  append([]Masker{&StructuredSecretMasker{}}, extra...),
	}
	return s
}

// MaskString applies all registered maskers, then the regex sweep, to s.
// Defensive: a masker error (panic-free by contract) never removes more
// than the value it owns; the regex sweep always runs regardless.
func (s *Service) MaskString(data string) string {
	if data == "" {
		return data
	}
	masked := data
	for _, m := range s.maskers {
		if m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}
