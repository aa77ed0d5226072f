package masking

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// secretKeyNames are map keys whose values are masked wholesale regardless
// of content shape, generalizing the teacher's Kubernetes-Secret-specific
// data/stringData masking to arbitrary structured payloads (tool results,
// escalation context snapshots, config dumps).
var secretKeyNames = map[string]bool{
	"password": true, "passwd": true, "secret": true, "secrets": true,
	"token": true, "api_key": true, "apikey": true, "access_token": true,
	"auth_token": true, "private_key": true, "client_secret": true,
	"credentials": true,
}

// StructuredSecretMasker masks known secret-named fields in JSON/YAML
// documents while leaving the rest of the structure untouched. Grounded on
// pkg/masking/kubernetes_secret.go's JSON-vs-YAML dispatch and defensive
// fallback-to-original behavior, generalized beyond Kubernetes Secret
// resources to any structured payload carrying credential-shaped keys.
type StructuredSecretMasker struct{}

func (m *StructuredSecretMasker) Name() string { return "structured_secret" }

func (m *StructuredSecretMasker) AppliesTo(data string) bool {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return false
	}
	return trimmed[0] == '{' || trimmed[0] == '[' || strings.Contains(data, ":")
}

func (m *StructuredSecretMasker) Mask(data string) string {
	trimmed := strings.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if masked, ok := m.maskJSON(data); ok {
			return masked
		}
	}
	if masked, ok := m.maskYAML(data); ok {
		return masked
	}
	return data
}

func (m *StructuredSecretMasker) maskJSON(data string) (string, bool) {
	var doc any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return data, false
	}
	masked := maskAny(doc)
	out, err := json.Marshal(masked)
	if err != nil {
		return data, false
	}
	return string(out), true
}

func (m *StructuredSecretMasker) maskYAML(data string) (string, bool) {
	decoder := yaml.NewDecoder(strings.NewReader(data))
	var docs []any
	any_ := false
	for {
		var doc any
		err := decoder.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return data, false
		}
		if doc == nil {
			continue
		}
		docs = append(docs, maskAny(doc))
		any_ = true
	}
	if !any_ {
		return data, false
	}
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return data, false
		}
	}
	_ = enc.Close()
	return sb.String(), true
}

// maskAny walks a decoded JSON/YAML value and replaces the value of any
// map key matching a known secret name with MaskedValue.
func maskAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if secretKeyNames[strings.ToLower(k)] {
				out[k] = MaskedValue
				continue
			}
			out[k] = maskAny(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = maskAny(val)
		}
		return out
	default:
		return v
	}
}
