package realtime

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rescuegrid/internal/auth"
	"rescuegrid/internal/geocell"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistry(geocell.NewCodec(6), logger)
}

func TestAdmitRequiresIdentity(t *testing.T) {
	registry := testRegistry(t)

	client, err := registry.Admit("", nil)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Nil(t, client)
	assert.Zero(t, registry.Len())
}

func TestAdmitStartsWithoutCell(t *testing.T) {
	registry := testRegistry(t)

	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, registry.Len())
	assert.Empty(t, client.cell)
}

func TestSetLocationJoinsCell(t *testing.T) {
	registry := testRegistry(t)
	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)

	cell, err := registry.SetLocation(client, geocell.Coordinate{Lat: 18.52, Lng: 73.85})
	require.NoError(t, err)

	assert.Contains(t, registry.MembersOf(cell), client)
}

func TestSetLocationIdempotentWithinCell(t *testing.T) {
	registry := testRegistry(t)
	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)

	cellA, err := registry.SetLocation(client, geocell.Coordinate{Lat: 18.52, Lng: 73.85})
	require.NoError(t, err)
	cellB, err := registry.SetLocation(client, geocell.Coordinate{Lat: 18.521, Lng: 73.851})
	require.NoError(t, err)

	assert.Equal(t, cellA, cellB)
	assert.Len(t, registry.MembersOf(cellA), 1)
}

func TestSetLocationMovesBetweenCells(t *testing.T) {
	registry := testRegistry(t)
	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)

	cellA, err := registry.SetLocation(client, geocell.Coordinate{Lat: 18.52, Lng: 73.85})
	require.NoError(t, err)
	cellB, err := registry.SetLocation(client, geocell.Coordinate{Lat: 19.5, Lng: 74.5})
	require.NoError(t, err)
	require.NotEqual(t, cellA, cellB)

	assert.NotContains(t, registry.MembersOf(cellA), client)
	assert.Contains(t, registry.MembersOf(cellB), client)
}

func TestSetLocationRejectsBadCoordinate(t *testing.T) {
	registry := testRegistry(t)
	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)

	_, err = registry.SetLocation(client, geocell.Coordinate{Lat: 91, Lng: 0})
	assert.ErrorIs(t, err, geocell.ErrInvalidCoordinate)
	assert.Empty(t, client.cell)
}

func TestReleaseRemovesMembership(t *testing.T) {
	registry := testRegistry(t)
	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)
	cell, err := registry.SetLocation(client, geocell.Coordinate{Lat: 18.52, Lng: 73.85})
	require.NoError(t, err)

	registry.Release(client)

	assert.Empty(t, registry.MembersOf(cell))
	assert.Zero(t, registry.Len())
}

func TestReleaseIsIdempotent(t *testing.T) {
	registry := testRegistry(t)
	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)

	registry.Release(client)
	registry.Release(client)

	assert.Zero(t, registry.Len())
}

func TestSetLocationAfterReleaseFails(t *testing.T) {
	registry := testRegistry(t)
	client, err := registry.Admit("user-1", nil)
	require.NoError(t, err)
	registry.Release(client)

	_, err = registry.SetLocation(client, geocell.Coordinate{Lat: 18.52, Lng: 73.85})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestShutdownReleasesEveryone(t *testing.T) {
	registry := testRegistry(t)
	for i := 0; i < 5; i++ {
		_, err := registry.Admit("user", nil)
		require.NoError(t, err)
	}

	registry.Shutdown()
	assert.Zero(t, registry.Len())
}
