package auth_test

import (
	"testing"

	auth "github.com/campusworks/go-campus-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "national format", input: "(212) 555-1234", expected: "+12125551234"},
		{name: "dotted format", input: "212.555.1234", expected: "+12125551234"},
		{name: "already E.164", input: "+12125551234", expected: "+12125551234"},
		{name: "international number", input: "+442083661177", expected: "+442083661177"},
		{name: "not a number", input: "not a phone", wantErr: true},
		{name: "too short", input: "123", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.NormalizePhone(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
