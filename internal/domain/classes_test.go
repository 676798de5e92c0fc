package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassMappings_YAML(t *testing.T) {
	m, err := ParseClassMappings([]byte(`
Stony: [L6, H5]
Chondrite: [L6, LL5]
Iron: [IIIAB]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Chondrite", "Stony"}, m["L6"], "categories are visited in name order")
	assert.Equal(t, "Chondrite", m.Superclass("L6"), "first category wins")
	assert.Equal(t, "Stony", m.Superclass("H5"))
	assert.Equal(t, "Iron", m.Superclass("IIIAB"))
	assert.Equal(t, UnknownSuperclass, m.Superclass("Martian"))
}

func TestParseClassMappings_JSON(t *testing.T) {
	m, err := ParseClassMappings([]byte(`{"Iron": ["Iron, IVA", "IAB"]}`))
	require.NoError(t, err)
	assert.Equal(t, "Iron", m.Superclass("Iron, IVA"))
}

func TestParseClassMappings_Invalid(t *testing.T) {
	_, err := ParseClassMappings([]byte("Iron: {not: [a list"))
	require.Error(t, err)
}

func TestAssignSuperclasses(t *testing.T) {
	m := InvertClassMappings(map[string][]string{"Chondrite": {"L5"}})
	in := []LandingRecord{
		{ID: "a", Classification: "L5"},
		{ID: "b", Classification: "Eucrite"},
		{ID: "c", Classification: "L5", Superclass: "Preset"},
	}

	out := AssignSuperclasses(in, m)

	assert.Equal(t, "Chondrite", out[0].Superclass)
	assert.Equal(t, UnknownSuperclass, out[1].Superclass)
	assert.Equal(t, "Preset", out[2].Superclass)
	assert.Empty(t, in[0].Superclass, "input is not modified")
}

func TestBreakdown(t *testing.T) {
	records := []LandingRecord{
		{Superclass: "Chondrite", Region: "texas"},
		{Superclass: "Chondrite", Region: "texas"},
		{Superclass: "Iron", Region: "kansas"},
		{Superclass: "Achondrite", Region: "texas"},
		{Region: "texas"},
		{Superclass: "Iron", Region: NonUSRegion},
	}

	all := Breakdown(records, "")
	require.Len(t, all, 4)
	assert.Equal(t, SuperclassShare{Superclass: "Chondrite", Count: 2, Percent: 33.33}, all[0])
	assert.Equal(t, SuperclassShare{Superclass: "Iron", Count: 2, Percent: 33.33}, all[1])
	assert.Equal(t, SuperclassShare{Superclass: "Achondrite", Count: 1, Percent: 16.67}, all[2])
	assert.Equal(t, SuperclassShare{Superclass: UnknownSuperclass, Count: 1, Percent: 16.67}, all[3])

	texas := Breakdown(records, "texas")
	require.Len(t, texas, 3)
	assert.Equal(t, SuperclassShare{Superclass: "Chondrite", Count: 2, Percent: 50}, texas[0])
}

func TestBreakdown_Empty(t *testing.T) {
	shares := Breakdown(nil, "ohio")
	assert.NotNil(t, shares)
	assert.Empty(t, shares)
}
