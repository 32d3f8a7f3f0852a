package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{input: "dining", want: CategoryDining},
		{input: " Grocery ", want: CategoryGrocery},
		{input: "TRAVEL", want: CategoryTravel},
		{input: "digital", want: CategoryDigital},
		{input: "other", want: CategoryOther},
		{input: "fuel", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownCategory)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllCategories_ReturnsCopy(t *testing.T) {
	cats := AllCategories()
	require.Len(t, cats, 5)
	cats[0] = "mutated"
	assert.Equal(t, CategoryDining, AllCategories()[0])
}

func TestCategoryFromSIC(t *testing.T) {
	tests := []struct {
		want Category
		code int
	}{
		{code: 5812, want: CategoryDining},
		{code: 5814, want: CategoryDining},
		{code: 5411, want: CategoryGrocery},
		{code: 3058, want: CategoryTravel},
		{code: 4511, want: CategoryTravel},
		{code: 7011, want: CategoryTravel},
		{code: 5817, want: CategoryDigital},
		{code: 4899, want: CategoryDigital},
		{code: 5999, want: CategoryOther},
		{code: 0, want: CategoryOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryFromSIC(tt.code), "SIC %d", tt.code)
	}
}

func TestCategory_DisplayName(t *testing.T) {
	assert.Equal(t, "Dining", CategoryDining.DisplayName())
	assert.Equal(t, "", Category("").DisplayName())
}
