package profile

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "main", false},
		{"valid with numbers", "store42", false},
		{"valid with hyphen", "sao-paulo", false},
		{"valid with underscore", "night_shift", false},
		{"valid single char", "a", false},
		{"valid max length", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"space", "my profile", true},
		{"dot", "my.profile", true},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
		{"special chars", "my@profile", true},
		{"slash", "../etc", true},
		{"leading hyphen", "-x", true},
		{"leading underscore", "_x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidName) {
				t.Errorf("ValidateName(%q) error = %v, want ErrInvalidName", tt.input, err)
			}
		})
	}
}

func TestCheckSocketPath(t *testing.T) {
	t.Setenv("BEAZAP_HOME", "/tmp/bz")
	if err := CheckSocketPath("main"); err != nil {
		t.Errorf("CheckSocketPath(main) = %v", err)
	}

	t.Setenv("BEAZAP_HOME", "/tmp/"+strings.Repeat("d", 90))
	if err := CheckSocketPath("main"); err == nil {
		t.Error("expected an error for a socket path over the limit")
	}
}
