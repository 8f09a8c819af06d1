package models

import (
	"testing"

	"github.com/dmitrijs2005/leafsync/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestPendingScan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scan    PendingScan
		wantErr error
	}{
		{"valid", PendingScan{ImageData: "data:image/png;base64,AA==", Confidence: 0.82}, nil},
		{"confidence low", PendingScan{ImageData: "x", Confidence: -0.1}, common.ErrInvalidConfidence},
		{"confidence high", PendingScan{ImageData: "x", Confidence: 1.1}, common.ErrInvalidConfidence},
		{"empty image", PendingScan{Confidence: 0.5}, common.ErrInvalidImageData},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scan.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}
