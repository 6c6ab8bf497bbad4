package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type payload struct {
		IBAN string `json:"iban" binding:"tr_iban"`
	}

	tests := []struct {
		name  string
		iban  string
		valid bool
	}{
		{"valid", "TR330006100519786457841326", true},
		{"valid with spaces", "TR33 0006 1005 1978 6457 8413 26", true},
		{"lowercase accepted", "tr330006100519786457841326", true},
		{"wrong country", "DE330006100519786457841326", false},
		{"too short", "TR33000610051978645784", false},
		{"letters in account part", "TR33000610051978645784132X", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(payload{IBAN: tt.iban})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
