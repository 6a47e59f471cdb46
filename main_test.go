package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/directory"
)

func TestBackfillLogos(t *testing.T) {
	ctx := context.Background()
	store, err := directory.Open(ctx, filepath.Join(t.TempDir(), "hopper.db"), directory.Options{})
	require.NoError(t, err)
	defer store.Close()

	ids := make(map[string]int64)
	for _, name := range []string{"Altona 93", "Brinkum", "Concordia", "Dassendorf"} {
		id, _, err := store.GetOrCreateClub(ctx, name)
		require.NoError(t, err)
		ids[name] = id
	}

	in := strings.NewReader(strings.Join([]string{
		"https://logos.example/altona.png",
		"",
		"https://elsewhere.example/concordia.png",
		"https://logos.example/dassendorf.png",
	}, "\n"))
	var out bytes.Buffer

	saved, err := backfillLogos(ctx, store, in, &out, "https://logos.example/")
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Contains(t, out.String(), "Found: 4 clubs without a logo")
	assert.Contains(t, out.String(), "→ Skipped")
	assert.Contains(t, out.String(), "✗ URL does not start with expected base URL")

	logos := map[string]string{"Altona 93": "altona.png", "Brinkum": "", "Concordia": "", "Dassendorf": "dassendorf.png"}
	for name, want := range logos {
		info, ok, err := store.ClubInfo(ctx, ids[name])
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, info.Logo, name)
	}

	left, err := store.ClubsWithoutLogo(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestBackfillLogosStopsAtEndOfInput(t *testing.T) {
	ctx := context.Background()
	store, err := directory.Open(ctx, filepath.Join(t.TempDir(), "hopper.db"), directory.Options{})
	require.NoError(t, err)
	defer store.Close()
	for _, name := range []string{"Altona 93", "Brinkum"} {
		_, _, err := store.GetOrCreateClub(ctx, name)
		require.NoError(t, err)
	}

	saved, err := backfillLogos(ctx, store, strings.NewReader("altona.png\n"), &bytes.Buffer{}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
}
