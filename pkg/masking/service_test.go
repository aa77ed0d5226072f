package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskString_RedactsBearerToken(t *testing.T) {
	s := New()
	out := s.MaskString("calling upstream with Bearer abcdef1234567890")
	assert.Contains(t, out, MaskedValue)
	assert.NotContains(t, out, "abcdef1234567890")
}

func TestMaskString_RedactsPasswordAssignment(t *testing.T) {
	s := New()
	out := s.MaskString(`connection failed: password=sup3rSecret!`)
	assert.Contains(t, out, MaskedValue)
	assert.NotContains(t, out, "sup3rSecret!")
}

func TestMaskString_LeavesBenignTextAlone(t *testing.T) {
	s := New()
	in := "agent timed out after 30 iterations"
	assert.Equal(t, in, s.MaskString(in))
}

func TestMaskString_StructuredJSONSecretField(t *testing.T) {
	s := New()
	out := s.MaskString(`{"tenant_id":"t-A","api_key":"sk-live-12345678"}`)
	assert.Contains(t, out, MaskedValue)
	assert.NotContains(t, out, "sk-live-12345678")
	assert.Contains(t, out, "t-A")
}

func TestMaskString_StructuredYAMLSecretField(t *testing.T) {
	s := New()
	out := s.MaskString("tenant_id: t-A\ncredentials: hunter2\n")
	assert.Contains(t, out, MaskedValue)
	assert.NotContains(t, out, "hunter2")
}

func TestDefault_IsSingleton(t *testing.T) {
	a := Default()
	b := Default()
	assert.Same(t, a, b)
}
