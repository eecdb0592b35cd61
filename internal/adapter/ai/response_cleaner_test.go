package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONResponseFenced(t *testing.T) {
	in := "```json\n{\"band\": \"Good\", \"score\": 3}\n```"
	out := CleanJSONResponse(in)
	assert.Equal(t, `{"band": "Good", "score": 3}`, out)
	assert.True(t, IsValidJSON(out))
}

func TestCleanJSONResponseBareFence(t *testing.T) {
	in := "```\n{\"score\": 2}\n```"
	assert.Equal(t, `{"score": 2}`, CleanJSONResponse(in))
}

func TestCleanJSONResponseProseAround(t *testing.T) {
	in := "Here is my evaluation:\n{\"band\": \"Excellent\", \"score\": 4}\nHope that helps!"
	assert.Equal(t, `{"band": "Excellent", "score": 4}`, CleanJSONResponse(in))
}

func TestCleanJSONResponseNestedBracesInStrings(t *testing.T) {
	in := `{"content_narrative": "uses {braces} and \"quotes\"", "score": 1}`
	out := CleanJSONResponse(in)
	assert.Equal(t, in, out)
	assert.True(t, IsValidJSON(out))
}

func TestCleanJSONResponseNoObject(t *testing.T) {
	assert.Equal(t, "no json here", CleanJSONResponse("no json here"))
	assert.False(t, IsValidJSON("no json here"))
}
