package doctor

import (
	"fmt"
	"net/url"
	"strings"
)

// secretWords are key segments that mark a value as sensitive. Keys are split
// on '_', '-' and '.', so SECRET_KEY and api-key match but KEYBOARD does not.
var secretWords = map[string]bool{
	"TOKEN":       true,
	"TOKENS":      true,
	"KEY":         true,
	"KEYS":        true,
	"APIKEY":      true,
	"SECRET":      true,
	"SECRETS":     true,
	"PASSWORD":    true,
	"PASSWD":      true,
	"PWD":         true,
	"AUTH":        true,
	"CREDENTIAL":  true,
	"CREDENTIALS": true,
	"PRIVATE":     true,
}

// secretSuffixes catch run-together keys such as GITHUBTOKEN or dbPassword.
var secretSuffixes = []string{"TOKEN", "SECRET", "PASSWORD"}

// tokenPrefixes identify well-known credentials whatever key holds them.
var tokenPrefixes = []string{
	// GitHub
	"ghp_", "gho_", "ghu_", "ghs_", "ghr_",
	// OpenAI, Anthropic, Stripe
	"sk-", "pk-",
	// AWS access key
	"AKIA",
	// Slack
	"xoxb-", "xoxp-", "xoxa-", "xoxr-",
}

// Redact returns value with secrets masked: everything under a secret-looking
// key, values that start with a known token prefix, and URL passwords.
func Redact(key string, value any) any {
	if ShouldMask(key) {
		return MaskValue(fmt.Sprint(value))
	}
	s, ok := value.(string)
	if !ok {
		return value
	}
	if ContainsTokenPrefix(s) {
		return MaskValue(s)
	}
	if strings.Contains(s, "://") {
		return MaskURL(s)
	}
	return value
}

// RedactEnv returns a copy of env with Redact applied to every value.
func RedactEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = fmt.Sprint(Redact(k, v))
	}
	return out
}

// ShouldMask reports whether key names a secret. Matching is case-insensitive.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, seg := range strings.FieldsFunc(upper, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	}) {
		if secretWords[seg] {
			return true
		}
		for _, suffix := range secretSuffixes {
			if strings.HasSuffix(seg, suffix) {
				return true
			}
		}
	}
	return false
}

// ContainsTokenPrefix reports whether value starts with a known token prefix.
func ContainsTokenPrefix(value string) bool {
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// MaskValue keeps the last four characters of values longer than four.
func MaskValue(value string) string {
	if len(value) <= 4 {
		return "********"
	}
	return "****" + value[len(value)-4:]
}

// MaskURL masks the password in user:pass@host URLs. Anything that does not
// parse, or carries no password, is returned unchanged.
func MaskURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.User == nil {
		return rawURL
	}
	password, ok := parsed.User.Password()
	if !ok || password == "" {
		return rawURL
	}
	parsed.User = url.UserPassword(parsed.User.Username(), MaskValue(password))
	return parsed.String()
}
