package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
	"github.com/JakeFAU/sdvx-chart-sync/internal/storage/memory"
)

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestFinalizeWritesHeaderAndRowsInOrder(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	sink, err := New(store, "sdvx_charts.csv", nil)
	require.NoError(t, err)

	entries := []chart.Entry{
		{Name: "Sample Song Title", Level: "03", Link: "https://sdvx.in/03/03075u.htm"},
		{Name: "Comma, Song", Level: "03", Link: "https://sdvx.in/03/03076.htm"},
		{Name: "曲名 \"quoted\"", Level: "20", Link: "https://sdvx.in/20/20001.htm"},
	}
	for _, e := range entries {
		require.NoError(t, sink.Accept(context.Background(), e))
	}
	require.NoError(t, sink.Finalize(context.Background()))
	assert.Equal(t, "memory://sdvx_charts.csv", sink.URI())
	assert.Equal(t, 1, store.Puts())

	raw, ok := store.Object("sdvx_charts.csv")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(raw), "Name,Level,Link\n"))

	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(entries)+1)
	for i, e := range entries {
		assert.Equal(t, e.Row(), records[i+1])
	}
}

func TestFinalizeEmptyTableHasOnlyHeader(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	sink, err := New(store, "out.csv", nil)
	require.NoError(t, err)
	require.NoError(t, sink.Finalize(context.Background()))

	raw, _ := store.Object("out.csv")
	assert.Equal(t, "Name,Level,Link\n", string(raw))
}

func TestFinalizeFailureKeepsRows(t *testing.T) {
	t.Parallel()

	sink, err := New(failingStore{}, "out.csv", nil)
	require.NoError(t, err)
	require.NoError(t, sink.Accept(context.Background(), chart.Entry{Name: "a", Level: "01", Link: "l"}))

	err = sink.Finalize(context.Background())
	require.ErrorContains(t, err, "disk full")
	assert.Len(t, sink.Rows(), 2)
	assert.Empty(t, sink.URI())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "out.csv", nil)
	assert.Error(t, err)
	_, err = New(memory.NewBlobStore(), "", nil)
	assert.Error(t, err)
}
