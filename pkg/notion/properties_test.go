package notion

import (
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitle(t *testing.T) {
	p := Title("Jane Doe")
	assert.Equal(t, notionapi.PropertyTypeTitle, p.Type)
	require.Len(t, p.Title, 1)
	assert.Equal(t, "Jane Doe", p.Title[0].Text.Content)
}

func TestText_Truncates(t *testing.T) {
	p := Text(strings.Repeat("é", maxTextLen+10))
	require.Len(t, p.RichText, 1)
	assert.Equal(t, maxTextLen, len([]rune(p.RichText[0].Text.Content)))
}

func TestScalarProperties(t *testing.T) {
	assert.Equal(t, 86.0, Number(86).Number)
	assert.Equal(t, "enterprise", Select("enterprise").Select.Name)
	assert.Equal(t, "Hot", Status("Hot").Status.Name)

	ts := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	d := Date(ts)
	require.NotNil(t, d.Date)
	require.NotNil(t, d.Date.Start)
	assert.True(t, time.Time(*d.Date.Start).Equal(ts))
}
