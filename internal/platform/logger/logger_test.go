package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeValue(t *testing.T) {
	assert.Equal(t, "[REDACTED]", sanitizeValue("access_token", "abc"))
	assert.Equal(t, "[REDACTED]", sanitizeValue("llm_api_key", "sk-123"))
	assert.Equal(t, 42, sanitizeValue("attempts", 42))

	hashed, ok := sanitizeValue("user_id", "2f1c7d0e-0000-4000-8000-000000000000").(string)
	assert.True(t, ok)
	assert.Regexp(t, `^hash:[0-9a-f]{12}$`, hashed)

	nested := sanitizeValue("payload", map[string]interface{}{"secret": "x", "count": 1}).(map[string]interface{})
	assert.Equal(t, "[REDACTED]", nested["secret"])
	assert.Equal(t, 1, nested["count"])
}

func TestLooksLikeJWT(t *testing.T) {
	assert.True(t, looksLikeJWT("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"))
	assert.False(t, looksLikeJWT("quiz-analysis-123"))
}
