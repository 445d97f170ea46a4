package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/pool/handle"
)

func TestStress_Deterministic(t *testing.T) {
	resetGlobals(t)
	cfg, err := conf.arenaConfig()
	require.NoError(t, err)
	cfg.InitialSize = 256
	cfg.MaxSize = 16 << 10

	run := func() stressResult {
		h, err := handle.New(cfg)
		require.NoError(t, err)
		defer h.Close()
		res, err := stress(h, 42, 2000)
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a, b)
	assert.Equal(t, a.Allocated-a.Released, a.Live)
	assert.Positive(t, a.Stats.Grows)
	assert.Positive(t, a.Checks)
}

func TestStress_TightCeiling(t *testing.T) {
	resetGlobals(t)
	cfg, err := conf.arenaConfig()
	require.NoError(t, err)
	cfg.InitialSize = 1024
	cfg.MaxSize = 1024

	h, err := handle.New(cfg)
	require.NoError(t, err)
	defer h.Close()

	res, err := stress(h, 7, 3000)
	require.NoError(t, err)
	assert.Positive(t, res.NoFit)
	assert.Equal(t, 1024, res.Report.Capacity)
	assert.Zero(t, res.Stats.Grows)
}

func TestStressCommand(t *testing.T) {
	resetGlobals(t)
	stressOps = 500
	stressSeed = 3

	output, err := captureOutput(t, runStress)
	require.NoError(t, err)
	assertContains(t, output, []string{"Stress", "seed 3", "500 operations", "live objects", "compactions"})
}

func TestStressCommand_JSON(t *testing.T) {
	resetGlobals(t)
	jsonOut = true
	stressOps = 500
	stressMaxSize = 4096

	output, err := captureOutput(t, runStress)
	require.NoError(t, err)
	assertJSON(t, output)

	var res stressResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, 500, res.Ops)
	assert.LessOrEqual(t, res.Report.Capacity, 4096)
}

func TestStressCommand_InvalidMaxSize(t *testing.T) {
	resetGlobals(t)
	stressMaxSize = 8

	_, err := captureOutput(t, runStress)
	require.Error(t, err)
}
