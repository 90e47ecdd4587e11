package client

import (
	"bytes"
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned pages and a scripted sequence of states.
type fakeAPI struct {
	// pages are returned by cursor.
	pages map[string]map[string]any
	// states are returned one per Status call; the last one repeats.
	states []string
	// polls counts Status calls.
	polls int
}

func (f *fakeAPI) ListTools(_ context.Context, cursor string) (map[string]any, error) {
	return f.pages[cursor], nil
}

func (f *fakeAPI) CallTool(context.Context, string, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func (f *fakeAPI) Status(context.Context) (map[string]any, error) {
	state := f.states[min(f.polls, len(f.states)-1)]
	f.polls++

	return map[string]any{"state": state}, nil
}

func (f *fakeAPI) Control(context.Context, string, string) error { return nil }
func (f *fakeAPI) Close() error                                  { return nil }

func page(names []string, next string) map[string]any {
	tools := make([]any, 0, len(names))
	for _, name := range names {
		tools = append(tools, map[string]any{"name": name})
	}

	result := map[string]any{"tools": tools}
	if next != "" {
		result["nextCursor"] = next
	}

	return map[string]any{"jsonrpc": "2.0", "id": 1, "result": result}
}

// TestListToolsFollowsCursor prints every page when asked for all of them.
func TestListToolsFollowsCursor(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{pages: map[string]map[string]any{
		"":       page([]string{"self.a"}, "self.b"),
		"self.b": page([]string{"self.b"}, ""),
	}}

	var one, all bytes.Buffer

	require.NoError(t, listTools(t.Context(), api, &one, false))
	require.Contains(t, one.String(), "self.a")
	require.NotContains(t, one.String(), `"name": "self.b"`)

	require.NoError(t, listTools(t.Context(), api, &all, true))
	require.Contains(t, all.String(), `"name": "self.a"`)
	require.Contains(t, all.String(), `"name": "self.b"`)
}

// TestStateWaitsForTarget polls until the device reports the wanted state.
func TestStateWaitsForTarget(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		api := &fakeAPI{states: []string{"connecting", "connecting", "listening"}}

		var out bytes.Buffer

		require.NoError(t, state(t.Context(), api, &out, "listening", time.Second))
		require.Equal(t, 3, api.polls)
		require.Contains(t, out.String(), `"listening"`)
	})
}

// TestStateHonorsCancellation stops waiting when the context ends.
func TestStateHonorsCancellation(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		api := &fakeAPI{states: []string{"idle"}}

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		var out bytes.Buffer

		require.ErrorIs(t, state(ctx, api, &out, "speaking", time.Second), context.DeadlineExceeded)
		require.Empty(t, out.String())
	})
}

// TestParseArguments accepts objects only.
func TestParseArguments(t *testing.T) {
	t.Parallel()

	args, err := parseArguments("")
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = parseArguments(`{"status":"on"}`)
	require.NoError(t, err)
	require.Equal(t, "on", args["status"])

	_, err = parseArguments(`[1,2]`)
	require.ErrorIs(t, err, errInvalidArguments)

	_, err = parseArguments(`null`)
	require.ErrorIs(t, err, errInvalidArguments)
}

// TestConnectNeedsAddress fails without settings or an address.
func TestConnectNeedsAddress(t *testing.T) {
	t.Parallel()

	_, err := connect(t.Context(), &Options{ConfigPath: t.TempDir() + "/missing.yaml"})
	require.Error(t, err)

	c, err := connect(t.Context(), &Options{ConfigPath: t.TempDir() + "/missing.yaml", Address: "127.0.0.1:7070"})
	require.NoError(t, err)
	require.NoError(t, c.Close())
}
