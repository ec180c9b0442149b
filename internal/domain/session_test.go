package domain

import (
	"strings"
	"testing"
)

func TestNewTokenShapeAndUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("new token: %v", err)
		}
		// 32 random bytes in unpadded base32 encode to 52 characters.
		if len(token) != 52 {
			t.Fatalf("token length = %d, want 52", len(token))
		}
		if token != strings.ToLower(token) {
			t.Fatalf("token %q is not lowercase", token)
		}
		if strings.Contains(token, "=") {
			t.Fatalf("token %q contains padding", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[token] = true
	}
}
