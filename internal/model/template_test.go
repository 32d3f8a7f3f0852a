package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_AreValidCards(t *testing.T) {
	for _, tmpl := range Templates() {
		t.Run(tmpl.Name(), func(t *testing.T) {
			card := tmpl.NewCard()
			require.NoError(t, card.Validate())
			assert.Equal(t, tmpl.Region, card.IssuingRegion)
		})
	}
}

func TestFindTemplate(t *testing.T) {
	tmpl, err := FindTemplate("hsbc hk pulse")
	require.NoError(t, err)
	assert.Equal(t, RegionCN, tmpl.Region)

	card := tmpl.NewCard()
	require.NotNil(t, card.ForeignRate)
	assert.InDelta(t, 0.024, *card.ForeignRate, 1e-12)
	assert.InDelta(t, 0.05, card.CategoryBonusRates[CategoryDining], 1e-12)

	card.CategoryBonusRates[CategoryDining] = 1
	again, err := FindTemplate("HSBC HK Pulse")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, again.BonusRates[CategoryDining], 1e-12, "NewCard must not share maps with the template")

	_, err = FindTemplate("Unknown Bank Gold")
	assert.Error(t, err)
}
