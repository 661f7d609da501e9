package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/labdesc/pkg/catalog"
)

const cliDescriptor = `{
  "title": "CKA: Fix Pod Scheduling Issue",
  "description": "Debug and fix a Pending Pod by correctly.",
  "details": {
    "steps": [{"title": "Fix it", "text": "step1.md", "verify": "verify.sh"}]
  },
  "backend": {"imageid": "kubernetes-kubeadm-2nodes"}
}`

func writeCLIScenario(t *testing.T, root, name string, withVerify bool) string {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte(cliDescriptor), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step1.md"), []byte("# step\n"), 0o644))

	if withVerify {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "verify.sh"), []byte("#!/bin/sh\n"), 0o755))
	}

	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// An empty config file keeps a stray ./config.yaml or $CONFIG_PATH out of the test.
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o644))

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		showFormat = "json"
		listRoot = ""
		listJSON = false
		validateVerbose = false
	})

	err := rootCmd.Execute()

	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	root := t.TempDir()
	good := writeCLIScenario(t, root, "good", true)
	bad := writeCLIScenario(t, root, "bad", false)

	out, err := runCLI(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "OK    "+filepath.Join(good, "index.json"))
	assert.Contains(t, out, "1 steps, image kubernetes-kubeadm-2nodes")

	out, err = runCLI(t, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 descriptors failed")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "verify.sh")
}

func TestShowCommand(t *testing.T) {
	dir := writeCLIScenario(t, t.TempDir(), "good", true)

	out, err := runCLI(t, "show", dir, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "imageid: kubernetes-kubeadm-2nodes")

	_, err = runCLI(t, "show", dir, "--format", "toml")
	require.Error(t, err)
}

func TestListCommand(t *testing.T) {
	root := t.TempDir()
	writeCLIScenario(t, root, "cka-scheduling", true)

	out, err := runCLI(t, "list", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "cka-scheduling")
	assert.Contains(t, out, "1 scenarios, images: kubernetes-kubeadm-2nodes")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "labdesc dev")
}

func TestReloadOnHangup(t *testing.T) {
	root := t.TempDir()
	writeCLIScenario(t, root, "first", true)

	reg, err := catalog.NewRegistry(log, root, "index.json")
	require.NoError(t, err)
	require.Equal(t, 1, reg.Count())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hup := make(chan os.Signal, 1)
	done := make(chan struct{})

	go func() {
		reloadOnHangup(ctx, reg, hup)
		close(done)
	}()

	writeCLIScenario(t, root, "second", true)
	hup <- syscall.SIGHUP

	assert.Eventually(t, func() bool { return reg.Count() == 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reload loop did not stop")
	}
}
