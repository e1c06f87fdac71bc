package metadata

import "regexp"

// secretPattern pairs a compiled matcher with the credential family it
// catches, for error reporting.
type secretPattern struct {
	re   *regexp.Regexp
	name string
}

// secretPatterns matches common credential formats a chunk should never be
// indexed with (spec §4.5). Compiled once at package init.
var secretPatterns = []secretPattern{
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`), "pem_private_key"},
	{regexp.MustCompile(`sk_live_[A-Za-z0-9]{16,}`), "stripe_live_key"},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "google_api_key"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "aws_access_key_id"},
	{regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`), "github_personal_access_token"},
	{regexp.MustCompile(`(?i)api[_-]?key\s*[:=]\s*['"][^'"\s]{8,}['"]`), "generic_api_key_assignment"},
	{regexp.MustCompile(`(?i)password\s*[:=]\s*['"][^'"\s]{4,}['"]`), "generic_password_assignment"},
}

// SecretFinding names one matched pattern within a chunk.
type SecretFinding struct {
	Kind string
}

// ScanForSecrets returns every secret pattern that matches content. An
// empty result means the chunk is clean. A non-empty result means the
// chunk MUST be excluded from indexing (spec §4.5).
func ScanForSecrets(content string) []SecretFinding {
	var findings []SecretFinding
	for _, p := range secretPatterns {
		if p.re.MatchString(content) {
			findings = append(findings, SecretFinding{Kind: p.name})
		}
	}
	return findings
}

// ContainsSecret reports whether content matches any secret pattern.
func ContainsSecret(content string) bool {
	for _, p := range secretPatterns {
		if p.re.MatchString(content) {
			return true
		}
	}
	return false
}
