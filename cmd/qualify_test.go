package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/qualify"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readCSVRows(path string) ([]resultRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []resultRow
	err = csvutil.Unmarshal(data, &rows)
	return rows, err
}

func TestReadProfiles_CSV(t *testing.T) {
	path := writeFile(t, "leads.csv", "email,name,comment,title,trigger_word\n"+
		"cto@acme.com,Dana,\"We need this ASAP, budget approved\",CTO,DATA\n"+
		"sam@small.io,Sam,cool,,\n")

	profiles, err := readProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "cto@acme.com", profiles[0].Email)
	assert.Equal(t, "We need this ASAP, budget approved", profiles[0].Comment)
	assert.Equal(t, "CTO", profiles[0].Title)
	assert.Equal(t, "DATA", profiles[0].TriggerWord)
	assert.Nil(t, profiles[0].Classification)
}

func TestReadProfiles_JSON(t *testing.T) {
	path := writeFile(t, "leads.json", `[{"email":"a@b.com","comment":"tell me more","prior_interactions":2}]`)

	profiles, err := readProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, 2, profiles[0].PriorInteractions)
}

func TestReadProfiles_Errors(t *testing.T) {
	_, err := readProfiles(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = readProfiles(writeFile(t, "leads.txt", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported leads file type")

	_, err = readProfiles(writeFile(t, "leads.json", "{"))
	assert.Error(t, err)
}

func TestQualifyAll(t *testing.T) {
	profiles := []qualify.Profile{
		{Email: "one@acme.com", Comment: "Not interested, thanks"},
		{Email: "two@acme.com", Comment: "Can we schedule a quick call?"},
		{Email: "three@acme.com", Comment: "tell me more"},
	}
	cls := classify.MustDefault()
	q := qualify.MustDefault()

	results, err := qualifyAll(context.Background(), cls, q, profiles, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, p := range profiles {
		assert.Equal(t, p.Email, results[i].Email)
		want := p
		res := cls.Classify(p.Comment)
		want.Classification = &res
		assert.Equal(t, q.Qualify(want), results[i])
	}
}

func TestQualifyAll_KeepsGivenClassification(t *testing.T) {
	given := classify.Result{ResponseType: classify.CallRequest, Confidence: 0.9, MatchedTriggers: []string{`\bCALL\b`}}
	p := qualify.Profile{Email: "a@b.com", Comment: "whatever", Classification: &given}

	q := qualify.MustDefault()
	results, err := qualifyAll(context.Background(), classify.MustDefault(), q, []qualify.Profile{p}, 0)
	require.NoError(t, err)
	assert.Equal(t, q.Qualify(p), results[0])
}

func TestQualifyAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := qualifyAll(ctx, classify.MustDefault(), qualify.MustDefault(), []qualify.Profile{{Email: "a@b.com"}}, 1)
	assert.Error(t, err)
}
