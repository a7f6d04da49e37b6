package tagger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTagsExample(t *testing.T) {
	tags := ExtractTags("note #project #urgent today\nsecond line #project")

	require.Len(t, tags, 2)
	require.Len(t, tags["#project"], 2)
	require.Len(t, tags["#urgent"], 1)

	first := tags["#project"][0]
	assert.Equal(t, 0, first.LineIndex)
	assert.Equal(t, "note #project #urgent today", first.LineText)
	assert.Equal(t, 5, first.MatchOffset)
	assert.Equal(t, "note #project #urgent today", first.Context)

	second := tags["#project"][1]
	assert.Equal(t, 1, second.LineIndex)
	assert.Equal(t, 12, second.MatchOffset)

	assert.Equal(t, 0, tags["#urgent"][0].LineIndex)
	assert.Equal(t, 14, tags["#urgent"][0].MatchOffset)
}

func TestExtractTagsEmpty(t *testing.T) {
	assert.Empty(t, ExtractTags(""))
	assert.Empty(t, ExtractTags("no tags here\n# heading with space"))
}

func TestExtractTagsCaseAndScript(t *testing.T) {
	tags := ExtractTags("#Go and #go\n#学习笔记 #café #tag_2")
	assert.Contains(t, tags, "#Go")
	assert.Contains(t, tags, "#go")
	assert.Contains(t, tags, "#学习笔记")
	assert.Contains(t, tags, "#café")
	assert.Contains(t, tags, "#tag_2")

	occ := tags["#café"][0]
	assert.Equal(t, 1, occ.LineIndex)
	// "#学习笔记 " is six characters
	assert.Equal(t, 6, occ.MatchOffset)
}

func TestExtractTagsRepeatedOnSameLine(t *testing.T) {
	tags := ExtractTags("#a then #a again")
	require.Len(t, tags["#a"], 2)
	assert.Equal(t, 0, tags["#a"][0].MatchOffset)
	assert.Equal(t, 8, tags["#a"][1].MatchOffset)
}

func TestExtractTagsContextClipped(t *testing.T) {
	left := strings.Repeat("x", 40)
	right := strings.Repeat("y", 40)
	tags := ExtractTags(left + " #mid " + right)
	require.Len(t, tags, 1)
	require.Len(t, tags["#mid"], 1)
	occ := tags["#mid"][0]
	assert.Equal(t, 41, occ.MatchOffset)
	assert.Equal(t, strings.Repeat("x", 29)+" #mid "+strings.Repeat("y", 29), occ.Context)

	tags = ExtractTags("#start " + right)
	require.Len(t, tags["#start"], 1)
	assert.Equal(t, "#start "+strings.Repeat("y", 29), tags["#start"][0].Context)
}

func TestExtractTagsContextCountsCharacters(t *testing.T) {
	left := strings.Repeat("é", 35)
	tags := ExtractTags(left + "#t")
	occ := tags["#t"][0]
	assert.Equal(t, 35, occ.MatchOffset)
	assert.Equal(t, strings.Repeat("é", 30)+"#t", occ.Context)
}

func TestIsTag(t *testing.T) {
	assert.True(t, IsTag("#project"))
	assert.True(t, IsTag("#日本"))
	assert.False(t, IsTag("project"))
	assert.False(t, IsTag("#"))
	assert.False(t, IsTag("#two words"))
	assert.False(t, IsTag(" #lead"))
}

func TestHasMarker(t *testing.T) {
	assert.True(t, HasMarker("#x"))
	assert.True(t, HasMarker("# spaced"))
	assert.False(t, HasMarker(" #x"))
}
