package config

// mergeCircuits merges user-provided circuit configs over the built-in
// default, keyed by circuit name. Unlike tenant tiers, there is no built-in
// per-name catalog — DefaultCircuitConfig is the fallback applied at lookup
// time (Config.Circuit), so merging here only needs to copy user entries.
//
// Grounded on pkg/config/merge.go's builtin-then-user-override idiom.
func mergeCircuits(user map[string]CircuitConfig) map[string]CircuitConfig {
	result := make(map[string]CircuitConfig, len(user))
	for name, cfg := range user {
		result[name] = cfg
	}
	return result
}

// mergeTenantTiers merges built-in tier limits with user overrides. A user
// entry for a tier replaces the whole built-in entry of that name; Go's
// zero-value YAML unmarshalling means fields left out of a partially
// specified tier are zero, not the built-in value. Built-in tiers absent
// from the user map are kept untouched (consistent with the teacher's "user
// overrides, else built-in" merge policy for agents/chains/MCP servers/LLM
// providers).
func mergeTenantTiers(user map[string]TenantTierConfig) map[string]TenantTierConfig {
	result := DefaultTenantTiers()
	for name, cfg := range user {
		result[name] = cfg
	}
	return result
}
