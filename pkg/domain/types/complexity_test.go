package types_test

import (
	"testing"

	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestParseComplexityLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.ComplexityLevel
		wantErr bool
	}{
		{
			name:    "valid beginner",
			input:   "beginner",
			want:    types.ComplexityBeginner,
			wantErr: false,
		},
		{
			name:    "valid intermediate",
			input:   "intermediate",
			want:    types.ComplexityIntermediate,
			wantErr: false,
		},
		{
			name:    "valid advanced",
			input:   "advanced",
			want:    types.ComplexityAdvanced,
			wantErr: false,
		},
		{
			name:    "invalid level",
			input:   "expert",
			want:    "",
			wantErr: true,
		},
		{
			name:    "empty level",
			input:   "",
			want:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.ParseComplexityLevel(tt.input)
			if tt.wantErr {
				gt.Error(t, err)
			} else {
				gt.NoError(t, err)
				gt.V(t, got).Equal(tt.want)
			}
		})
	}
}

func TestComplexityLevel_Normalize(t *testing.T) {
	gt.V(t, types.ComplexityLevel("").Normalize()).Equal(types.ComplexityIntermediate)
	gt.V(t, types.ComplexityLevel("expert").Normalize()).Equal(types.ComplexityIntermediate)
	gt.V(t, types.ComplexityBeginner.Normalize()).Equal(types.ComplexityBeginner)
}

func TestComplexityLevel_Rank(t *testing.T) {
	gt.N(t, types.ComplexityBeginner.Rank()).Less(types.ComplexityIntermediate.Rank())
	gt.N(t, types.ComplexityIntermediate.Rank()).Less(types.ComplexityAdvanced.Rank())
	gt.N(t, types.ComplexityLevel("").Rank()).Equal(0)
}
