package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFullCitation(t *testing.T) {
	s := NewExtractService()

	text := "Terry v. Ohio, 392 U.S. 1 (1968) held that a limited frisk is permissible."
	mentions := s.Extract(text)

	require.Len(t, mentions, 1)
	m := mentions[0]
	assert.Equal(t, "Terry v. Ohio, 392 U.S. 1 (1968)", m.Text)
	assert.Equal(t, 0, m.Offset)
	assert.Equal(t, "Terry v. Ohio", m.CaseName)
	require.NotNil(t, m.Volume)
	assert.Equal(t, 392, *m.Volume)
	assert.Equal(t, "U.S.", m.Reporter)
	require.NotNil(t, m.Page)
	assert.Equal(t, 1, *m.Page)
	require.NotNil(t, m.Year)
	assert.Equal(t, 1968, *m.Year)
	assert.Equal(t, 1.0, m.Confidence)
}

func TestExtractOrdersByOffsetWithTieredConfidence(t *testing.T) {
	s := NewExtractService()

	text := "Terry v. Ohio, 392 U.S. 1 (1968) held that a limited frisk is permissible. " +
		"See Adams, 407 U.S. 143, extending the rule to tips. Id. at 146."
	mentions := s.Extract(text)

	require.Len(t, mentions, 3)

	assert.Equal(t, 1.0, mentions[0].Confidence)
	assert.Equal(t, "Terry v. Ohio", mentions[0].CaseName)

	assert.Equal(t, 0.8, mentions[1].Confidence)
	assert.Equal(t, "Adams", mentions[1].CaseName)
	require.NotNil(t, mentions[1].Volume)
	assert.Equal(t, 407, *mentions[1].Volume)
	assert.Equal(t, "U.S.", mentions[1].Reporter)
	require.NotNil(t, mentions[1].Page)
	assert.Equal(t, 143, *mentions[1].Page)
	assert.Nil(t, mentions[1].Year)

	assert.Equal(t, 0.6, mentions[2].Confidence)
	assert.Equal(t, "", mentions[2].Reporter)
	require.NotNil(t, mentions[2].Page)
	assert.Equal(t, 146, *mentions[2].Page)

	assert.Less(t, mentions[0].Offset, mentions[1].Offset)
	assert.Less(t, mentions[1].Offset, mentions[2].Offset)
}

func TestExtractDropsOverlappingLowerConfidenceSpans(t *testing.T) {
	s := NewExtractService()

	// The signal form, the bare form, and the full form all match
	// here; only the span claimed by the full pattern survives
	text := "See Mapp v. Ohio, 367 U.S. 643, which controls this case."
	mentions := s.Extract(text)

	require.Len(t, mentions, 1)
	assert.Equal(t, 1.0, mentions[0].Confidence)
	assert.Equal(t, "Mapp v. Ohio", mentions[0].CaseName)
	require.NotNil(t, mentions[0].Volume)
	assert.Equal(t, 367, *mentions[0].Volume)
}

func TestExtractBareReporterCite(t *testing.T) {
	s := NewExtractService()

	text := "The controlling authority is 392 U.S. 1 (1968), as both parties concede."
	mentions := s.Extract(text)

	require.Len(t, mentions, 1)
	m := mentions[0]
	assert.Equal(t, 1.0, m.Confidence)
	assert.Equal(t, "", m.CaseName)
	require.NotNil(t, m.Volume)
	assert.Equal(t, 392, *m.Volume)
	assert.Equal(t, "U.S.", m.Reporter)
	require.NotNil(t, m.Page)
	assert.Equal(t, 1, *m.Page)
	require.NotNil(t, m.Year)
	assert.Equal(t, 1968, *m.Year)
}

func TestExtractNoCitations(t *testing.T) {
	s := NewExtractService()

	mentions := s.Extract("The parties dispute the scope of discovery.")
	assert.Empty(t, mentions)
}
