package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// resetGlobals restores flag and config globals when the test ends and
// disables color so output can be matched literally.
func resetGlobals(t *testing.T) {
	t.Helper()
	saved := struct {
		verbose, quiet, jsonOut, noColor bool
		conf                             settings
		stressOps, stressMaxSize         int
		stressSeed                       uint64
		benchIterations, benchBatch      int
	}{verbose, quiet, jsonOut, noColor, conf, stressOps, stressMaxSize, stressSeed, benchIterations, benchBatch}
	t.Cleanup(func() {
		verbose, quiet, jsonOut, noColor = saved.verbose, saved.quiet, saved.jsonOut, saved.noColor
		conf = saved.conf
		stressOps, stressMaxSize, stressSeed = saved.stressOps, saved.stressMaxSize, saved.stressSeed
		benchIterations, benchBatch = saved.benchIterations, saved.benchBatch
	})
	noColor = true
	conf = defaultSettings()
	conf.Arena.Source = "heap"
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe.
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		defer close(done)
		_, _ = buf.ReadFrom(r)
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	<-done
	r.Close()

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
