// cmd/tools/registry-updater/main_test.go
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-workers/pkg/registry"
)

func TestCheckRegistry_Embedded(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	assert.Empty(t, checkRegistry(reg))
}

func TestCheckRegistry_Problems(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{
		{ID: "submit-bid", TaskType: "submit-bid", Timeout: "ten seconds", ErrorCodes: []string{"DUPLICATE_BID", "PAYMENT_DECLINED"}},
		{ID: "submit-bid", TaskType: "submit-bid"},
		{ID: "hire-bid", TaskType: "hire-bid", InputSchema: map[string]interface{}{"type": 42}},
	}}

	problems := checkRegistry(reg)

	joined := ""
	for _, p := range problems {
		joined += p + "\n"
	}
	assert.Contains(t, joined, "duplicate activity id: submit-bid")
	assert.Contains(t, joined, `invalid timeout "ten seconds"`)
	assert.Contains(t, joined, "unknown error code PAYMENT_DECLINED")
	assert.Contains(t, joined, "no activity registered for worker task type list-job-bids")
	assert.Contains(t, joined, "no activity registered for worker task type query-worker-bids")
	assert.Contains(t, joined, "invalid input schema for hire-bid")
}

func TestCheckRegistry_Empty(t *testing.T) {
	assert.Equal(t, []string{"registry contains no activities"}, checkRegistry(&registry.ActivityRegistry{}))
}

func TestUpdateActivity(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, saveRegistry(reg, path))

	require.NoError(t, updateActivity(path, "hire-bid", "timeout", "20s"))
	require.NoError(t, updateActivity(path, "hire-bid", "retries", "5"))

	updated, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	act, ok := updated.Find("hire-bid")
	require.True(t, ok)
	assert.Equal(t, "20s", act.Timeout)
	assert.Equal(t, 5, act.Retries)

	assert.Error(t, updateActivity(path, "hire-bid", "timeout", "soon"))
	assert.Error(t, updateActivity(path, "hire-bid", "colour", "blue"))
	assert.Error(t, updateActivity(path, "fire-bid", "status", "done"))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
