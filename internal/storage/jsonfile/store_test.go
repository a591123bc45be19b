package jsonfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefolio/chronicle/internal/storage/jsonfile"
	"github.com/casefolio/chronicle/pkg/types"
)

func TestLoadMissingFileReturnsEmptyState(t *testing.T) {
	store, err := jsonfile.New(filepath.Join(t.TempDir(), "case_chronology.json"))
	require.NoError(t, err)
	defer store.Close()

	c, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c.Events)
	assert.Equal(t, 1, c.NextID)
	assert.NotNil(t, c.Parties)
	assert.NotNil(t, c.Documents)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_chronology.json")
	store, err := jsonfile.New(path)
	require.NoError(t, err)
	defer store.Close()

	updated := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	state := &types.Chronology{
		Events: []types.Event{
			{
				ID:             1,
				Date:           types.NewDate(2023, time.March, 15),
				DatePrecision:  types.PrecisionExact,
				Description:    "Contract signed",
				Parties:        []string{"Acme Corp", "Jones LLC"},
				DocumentSource: "contract.pdf",
				Tags:           []string{"contract"},
				CreatedAt:      time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
				UpdatedAt:      &updated,
			},
			{
				ID:            3,
				Date:          types.NewDate(2023, time.June, 1),
				DatePrecision: types.PrecisionApproximate,
				Description:   "Dispute began",
				Parties:       []string{},
				CreatedAt:     time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC),
			},
		},
		NextID:    4,
		Parties:   map[string][]int{"Acme Corp": {1}, "Jones LLC": {1}},
		Documents: map[string][]int{"contract.pdf": {1}},
	}

	require.NoError(t, store.Save(context.Background(), state))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.Events, loaded.Events)
	assert.Equal(t, 4, loaded.NextID)
	assert.Equal(t, state.Parties, loaded.Parties)
	assert.Equal(t, state.Documents, loaded.Documents)
}

func TestDatesPersistAsPlainStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_chronology.json")
	store, err := jsonfile.New(path)
	require.NoError(t, err)
	defer store.Close()

	state := types.NewChronology()
	state.Events = append(state.Events, types.Event{
		ID:            1,
		Date:          types.NewDate(2023, time.March, 15),
		DatePrecision: types.PrecisionExact,
		Description:   "Filing",
		Parties:       []string{},
		CreatedAt:     time.Now().UTC(),
	})
	state.NextID = 2
	require.NoError(t, store.Save(context.Background(), state))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"date": "2023-03-15"`)
	assert.Contains(t, string(raw), `"next_id": 2`)
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_chronology.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := jsonfile.New(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}
