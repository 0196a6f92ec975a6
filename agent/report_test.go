package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pricescout/types"
)

func TestParseReport_Findings(t *testing.T) {
	text := "Here is what I found:\n" +
		"- Nike Air Max 90 - €89.99 - Zalando\n" +
		"2. Nike Air Max 90 SE – 94,50 € – Amazon\n" +
		"no price on this line\n"

	results := ParseReport(text, sneakerTask())
	require.Len(t, results, 2)

	assert.Equal(t, "Nike Air Max 90", results[0].ProductName)
	assert.Equal(t, 89.99, results[0].CurrentPrice)
	assert.Equal(t, "EUR", results[0].Currency)
	assert.Equal(t, "Zalando", results[0].StoreName)
	assert.True(t, results[0].MeetsCriteria)

	assert.Equal(t, "Nike Air Max 90 SE", results[1].ProductName)
	assert.Equal(t, 94.50, results[1].CurrentPrice)
	assert.Equal(t, "Amazon", results[1].StoreName)
}

func TestParseReport_SkipsPricelessLines(t *testing.T) {
	results := ParseReport("couldn't find anything matching that", sneakerTask())
	assert.Empty(t, results)
}

func TestBuildGoal(t *testing.T) {
	task := sneakerTask()
	task.Constraints.Size = types.StrPtr("42")

	goal := BuildGoal(task)
	assert.Contains(t, goal, "Nike shoes")
	assert.Contains(t, goal, "size 42")
	assert.Contains(t, goal, "under 100.00 EUR")
	assert.Contains(t, goal, "product name - price - store")
}

func TestBuildGoal_SpecificSites(t *testing.T) {
	goal := BuildGoal(sneakerTask("zalando", "amazon"))
	assert.Contains(t, goal, "zalando, amazon")
}

func TestSearchQuery(t *testing.T) {
	task := sneakerTask()
	task.Product.Model = types.StrPtr("Air Max 90")
	task.Product.Color = types.StrPtr("black")

	assert.Equal(t, "Nike Air Max 90 shoes black", SearchQuery(task))
}
