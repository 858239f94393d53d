/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/statwatch/apisched/testutil"
)

func writeConfigFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func executeCommand(ctx context.Context, args ...string) (string, error) {
	rootCmd := newRootCommand()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	tests := []struct {
		name       string
		configFile string
		configData string
		check      func(t *testing.T, printed map[string]interface{})
	}{
		{
			name: "defaults without config file",
			check: func(t *testing.T, printed map[string]interface{}) {
				adminServer := printed["adminServer"].(map[string]interface{})
				assert.Equal(t, "127.0.0.1:9090", adminServer["address"])
				sched := printed["scheduler"].(map[string]interface{})
				shortWindow := sched["shortWindow"].(map[string]interface{})
				assert.Equal(t, 18, shortWindow["limit"])
				assert.Equal(t, "1s", shortWindow["duration"])
			},
		},
		{
			name:       "yaml config file",
			configFile: "apisched.yaml",
			configData: `
scheduler:
  shortWindow:
    limit: 15
  defaultTimeout: 3s
httpClient:
  auth:
    token: secret-api-key
poller:
  targets:
    - name: platform-status
      url: http://localhost/status
      schedule: "@every 5m"
      priority: 3
`,
			check: func(t *testing.T, printed map[string]interface{}) {
				sched := printed["scheduler"].(map[string]interface{})
				assert.Equal(t, 15, sched["shortWindow"].(map[string]interface{})["limit"])
				assert.Equal(t, "3s", sched["defaultTimeout"])

				auth := printed["httpClient"].(map[string]interface{})["auth"].(map[string]interface{})
				assert.Equal(t, redactedValue, auth["token"])
				assert.Equal(t, "X-Riot-Token", auth["header"])

				targets := printed["poller"].(map[string]interface{})["targets"].([]interface{})
				require.Len(t, targets, 1)
				target := targets[0].(map[string]interface{})
				assert.Equal(t, "platform-status", target["name"])
				assert.Equal(t, 3, target["priority"])
			},
		},
		{
			name:       "json config file",
			configFile: "apisched.json",
			configData: `{"adminServer": {"address": "127.0.0.1:9191"}}`,
			check: func(t *testing.T, printed map[string]interface{}) {
				assert.Equal(t, "127.0.0.1:9191", printed["adminServer"].(map[string]interface{})["address"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"config"}
			if tt.configFile != "" {
				args = append(args, "--config", writeConfigFile(t, tt.configFile, tt.configData))
			}
			out, err := executeCommand(context.Background(), args...)
			require.NoError(t, err)

			printed := map[string]interface{}{}
			require.NoError(t, yaml.Unmarshal([]byte(out), &printed))
			tt.check(t, printed)
		})
	}
}

func TestConfigCommandErrors(t *testing.T) {
	tests := []struct {
		name       string
		args       func(t *testing.T) []string
		wantErrStr string
	}{
		{
			name: "invalid poller target",
			args: func(t *testing.T) []string {
				path := writeConfigFile(t, "apisched.yaml", `
poller:
  targets:
    - name: summoner
      url: http://localhost/summoner
      schedule: "not a schedule"
`)
				return []string{"config", "-c", path}
			},
			wantErrStr: "poller.targets[0]",
		},
		{
			name: "invalid scheduler window",
			args: func(t *testing.T) []string {
				path := writeConfigFile(t, "apisched.yaml", "scheduler:\n  shortWindow:\n    limit: -1\n")
				return []string{"config", "-c", path}
			},
			wantErrStr: "scheduler.shortWindow",
		},
		{
			name: "missing config file",
			args: func(t *testing.T) []string {
				return []string{"config", "-c", filepath.Join(t.TempDir(), "absent.yaml")}
			},
			wantErrStr: "load config",
		},
		{
			name: "unsupported config file extension",
			args: func(t *testing.T) []string {
				return []string{"config", "-c", writeConfigFile(t, "apisched.toml", "")}
			},
			wantErrStr: `unsupported config file extension ".toml"`,
		},
		{
			name: "unexpected argument",
			args: func(t *testing.T) []string {
				return []string{"config", "extra"}
			},
			wantErrStr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(context.Background(), tt.args(t)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrStr)
		})
	}
}

func TestRootCommandVersion(t *testing.T) {
	out, err := executeCommand(context.Background(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "apisched version")
}

func TestRunCommand(t *testing.T) {
	addr := testutil.GetLocalAddrWithFreeTCPPort()
	path := writeConfigFile(t, "apisched.yaml", fmt.Sprintf(`
log:
  level: error
adminServer:
  address: %s
`, addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		_, err := executeCommand(ctx, "run", "--config", path)
		runErr <- err
	}()

	require.NoError(t, testutil.WaitListeningServer(addr, 5*time.Second))

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run command was not stopped")
	}
}
