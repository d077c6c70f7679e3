package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestValidate_MinimalIdea(t *testing.T) {
	records, err := MinimalIdea.Validate(parse(t, `[{"Idea":"X","Details":"Y"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "X", records[0].String("Idea"))
	assert.Equal(t, "Y", records[0].String("Details"))
}

func TestValidate_MissingFieldNamesIt(t *testing.T) {
	_, err := MinimalIdea.Validate(parse(t, `[{"Idea":"X"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing field "Details"`)
	assert.Contains(t, err.Error(), "item 0")
}

func TestValidate_WrongTypeNamesIt(t *testing.T) {
	_, err := MinimalIdea.Validate(parse(t, `[{"Idea":"X","Details":42}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "Details"`)
	assert.Contains(t, err.Error(), "expected string")
}

func TestValidate_SingleObjectWrapped(t *testing.T) {
	records, err := MinimalIdea.Validate(parse(t, `{"Idea":"X","Details":"Y"}`))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestValidate_NestedListUnwrapped(t *testing.T) {
	records, err := MinimalIdea.Validate(parse(t, `{"ideas":[{"Idea":"X","Details":"Y"},{"Idea":"A","Details":"B"}]}`))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestValidate_HardFailOnOneBadItem(t *testing.T) {
	// One violation invalidates the whole batch; there is no per-item skip.
	_, err := MinimalIdea.Validate(parse(t, `[{"Idea":"X","Details":"Y"},{"Idea":"A"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}

func TestValidate_EmptyList(t *testing.T) {
	_, err := MinimalIdea.Validate(parse(t, `[]`))
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestValidate_NonObjectItem(t *testing.T) {
	_, err := MinimalIdea.Validate(parse(t, `["just a string"]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 0 is not an object")
}

func TestValidate_RichIdea(t *testing.T) {
	v := parse(t, `[{
		"Product Idea": "AI Assistant",
		"Problem it solves": "Task automation",
		"Software Techstack": ["Python", "FastAPI"],
		"Target hardware expectations": ["Cloud servers"],
		"Company profile": "SaaS",
		"Engineering profile": "Backend developers"
	}]`)
	records, err := RichIdea.Validate(v)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Python", "FastAPI"}, records[0].StringList("Software Techstack"))
}

func TestValidate_RichIdea_ListWithNonString(t *testing.T) {
	v := parse(t, `[{
		"Product Idea": "AI Assistant",
		"Problem it solves": "Task automation",
		"Software Techstack": ["Python", 7],
		"Target hardware expectations": ["Cloud servers"],
		"Company profile": "SaaS",
		"Engineering profile": "Backend developers"
	}]`)
	_, err := RichIdea.Validate(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1 is not a string")
}

func TestStrings(t *testing.T) {
	names, err := Strings(parse(t, `["flask","react"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"flask", "react"}, names)
}

func TestStrings_WrappedList(t *testing.T) {
	names, err := Strings(parse(t, `{"frameworks":["flask"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"flask"}, names)
}

func TestStrings_NonString(t *testing.T) {
	_, err := Strings(parse(t, `["flask", 1]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1 is not a string")
}

func TestStrings_Empty(t *testing.T) {
	names, err := Strings(parse(t, `[]`))
	require.NoError(t, err)
	assert.Empty(t, names)
}
