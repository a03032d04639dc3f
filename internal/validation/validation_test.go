package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "amira@example.com", false},
		{"valid with plus", "amira+dating@example.com", false},
		{"empty", "", true},
		{"no at sign", "amira.example.com", true},
		{"no domain", "amira@", true},
		{"spaces", "amira @example.com", true},
		{"too long", strings.Repeat("a", 250) + "@x.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("pw123"))
	assert.NoError(t, ValidatePassword("abcd"))
	assert.Error(t, ValidatePassword("abc"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 129)))
}

func TestValidateDisplayName(t *testing.T) {
	assert.NoError(t, ValidateDisplayName("Amira"))
	assert.Error(t, ValidateDisplayName(""))
	assert.Error(t, ValidateDisplayName(strings.Repeat("n", 51)))
}

func TestValidateAge(t *testing.T) {
	assert.NoError(t, ValidateAge(18))
	assert.NoError(t, ValidateAge(99))
	assert.Error(t, ValidateAge(17))
	assert.Error(t, ValidateAge(121))
}
