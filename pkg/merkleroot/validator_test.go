package merkleroot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		local    string
		onchain  string
		expected bool
	}{
		{
			"identical",
			"0x2e9e2b5a3020ba97cd2b0b0d47b6ffac55961b54be2b2b30f643296cbc4e0f2",
			"0x2e9e2b5a3020ba97cd2b0b0d47b6ffac55961b54be2b2b30f643296cbc4e0f2",
			true,
		},
		{
			"case_insensitive",
			"0xABCDEF0000000000000000000000000000000000000000000000000000000001",
			"0xabcdef0000000000000000000000000000000000000000000000000000000001",
			true,
		},
		{
			"short_form_padded",
			"0x1",
			"0x0000000000000000000000000000000000000000000000000000000000000001",
			true,
		},
		{
			"missing_prefix",
			"abcdef0000000000000000000000000000000000000000000000000000000001",
			"0xABCDEF0000000000000000000000000000000000000000000000000000000001",
			true,
		},
		{
			"mismatch",
			"0x0000000000000000000000000000000000000000000000000000000000000001",
			"0x0000000000000000000000000000000000000000000000000000000000000002",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.local, tt.onchain)
			require.Equal(t, tt.expected, result.Valid)
			if !tt.expected {
				// both values are reported so the caller can decide to
				// resynchronize
				require.NotEmpty(t, result.Local)
				require.NotEmpty(t, result.OnChain)
				require.Contains(t, result.String(), "mismatch")
			}
		})
	}
}
