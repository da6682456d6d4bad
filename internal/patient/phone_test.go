package patient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical", "+421905123456", "+421905123456"},
		{"canonical with spaces", "+421 905 123 456", "+421905123456"},
		{"national", "0905123456", "+421905123456"},
		{"national with dashes", "0905-123-456", "+421905123456"},
		{"country code without plus", "421905123456", "+421905123456"},
		{"international prefix", "00421905123456", "+421905123456"},
		{"bare mobile", "905123456", "+421905123456"},
		{"parentheses", "(0905) 123 456", "+421905123456"},
		{"empty", "   ", ""},
		{"foreign", "+420601123456", "+420601123456"},
		{"too short", "12345", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestIsCanonicalPhone(t *testing.T) {
	assert.True(t, IsCanonicalPhone("+421905123456"))
	assert.False(t, IsCanonicalPhone("0905123456"))
	assert.False(t, IsCanonicalPhone("+4219051234567"))
	assert.False(t, IsCanonicalPhone("+42190512345"))
}

func TestLastDigits(t *testing.T) {
	assert.Equal(t, "123456", LastDigits("+421 905 123 456", 6))
	assert.Equal(t, "456", LastDigits("4-5-6", 6))
	assert.Equal(t, "", LastDigits("", 6))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***3456", MaskPhone("+421905123456"))
	assert.Equal(t, "", MaskPhone(""))
}
