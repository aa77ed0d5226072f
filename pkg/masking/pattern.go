package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// builtinPatterns are the default credential-shaped patterns masked in every
// error message, regardless of configuration. Modeled on the teacher's
// built-in masking pattern set, generalized beyond Kubernetes/MCP contexts.
var builtinPatterns = []struct {
	name, pattern, description string
}{
	{
		name:        "bearer_token",
		pattern:     `(?i)bearer\s+[a-z0-9._\-]{10,}`,
		description: "Authorization: Bearer <token> headers",
	},
	{
		name:        "api_key_assignment",
		pattern:     `(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[a-z0-9._\-]{8,}['"]?`,
		description: "api_key: <value> / apiKey=<value> style assignments",
	},
	{
		name:        "password_assignment",
		pattern:     `(?i)(password|passwd|pwd)\s*[:=]\s*['"]?\S{4,}['"]?`,
		description: "password: <value> style assignments",
	},
	{
		name:        "token_assignment",
		pattern:     `(?i)(access[_-]?token|auth[_-]?token|secret[_-]?token|token)\s*[:=]\s*['"]?[a-z0-9._\-]{8,}['"]?`,
		description: "token: <value> style assignments",
	},
	{
		name:        "aws_access_key",
		pattern:     `\bAKIA[0-9A-Z]{16}\b`,
		description: "AWS access key ids",
	},
	{
		name:        "private_key_block",
		pattern:     `-----BEGIN[ A-Z]*PRIVATE KEY-----[\s\S]*?-----END[ A-Z]*PRIVATE KEY-----`,
		description: "PEM private key blocks",
	},
	{
		name:        "basic_auth_url",
		pattern:     `(?i)(https?://)[^:/\s]+:[^@/\s]+@`,
		description: "userinfo embedded in a URL",
	},
}

func compileBuiltinPatterns() map[string]*CompiledPattern {
	out := make(map[string]*CompiledPattern, len(builtinPatterns))
	for _, p := range builtinPatterns {
		compiled, err := regexp.Compile(p.pattern)
		if err != nil {
			slog.Error("failed to compile built-in masking pattern, skipping", "pattern", p.name, "error", err)
			continue
		}
		out[p.name] = &CompiledPattern{
			Name:        p.name,
			Regex:       compiled,
			Replacement: MaskedValue,
			Description: p.description,
		}
	}
	return out
}
