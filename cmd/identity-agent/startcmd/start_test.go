/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/nanderstabel/identity/pkg/account"
	"github.com/nanderstabel/identity/pkg/common/log"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
	spi "github.com/nanderstabel/identity/spi/log"
)

type mockServer struct {
	host    string
	handler http.Handler
}

func (s *mockServer) ListenAndServe(host string, handler http.Handler, _, _ string) error {
	s.host = host
	s.handler = handler

	return nil
}

func (s *mockServer) serve(t *testing.T) *httptest.Server {
	t.Helper()

	require.NotNil(t, s.handler)

	srv := httptest.NewServer(s.handler)
	t.Cleanup(srv.Close)

	return srv
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()

	cmd.SetArgs(args)

	return cmd.Execute()
}

func get(t *testing.T, url, token string) int {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp.StatusCode
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	require.Equal(t, "start", startCmd.Use)
	require.Equal(t, "Start an agent", startCmd.Short)
	require.Equal(t, "Start an identity agent serving the resolver and account REST API", startCmd.Long)

	for _, name := range []string{
		agentHostFlagName, agentTokenFlagName, nodeURLFlagName, networkFlagName, logLevelFlagName,
		databaseTypeFlagName, databasePathFlagName, cacheSizeFlagName, cacheTTLFlagName, configFileFlagName,
	} {
		require.NotNil(t, startCmd.Flags().Lookup(name), name)
	}

	require.Equal(t, agentHostFlagShorthand, startCmd.Flags().Lookup(agentHostFlagName).Shorthand)
}

func TestStartCmdErrors(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, startCmd)
		require.EqualError(t, err, "Neither api-host (command line flag) nor IDENTITY_API_HOST"+
			" (environment variable) have been set.")
	})

	t.Run("invalid log level", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, startCmd, "--api-host", "localhost:8080", "--log-level", "INVALID")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to parse log level 'INVALID'")
	})

	t.Run("invalid network", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, startCmd, "--api-host", "localhost:8080", "--network", "NOT VALID")
		require.True(t, errors.Is(err, tangle.ErrInvalidNetworkName))
	})

	t.Run("invalid database type", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, startCmd, "--api-host", "localhost:8080", "--database-type", "couchdb")
		require.Error(t, err)
		require.Contains(t, err.Error(), "database type not set to a valid type")
	})

	t.Run("leveldb without path", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, startCmd, "--api-host", "localhost:8080", "--database-type", "leveldb")
		require.Error(t, err)
		require.Contains(t, err.Error(), "database-path is required")
	})

	t.Run("invalid cache ttl", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, startCmd, "--api-host", "localhost:8080", "--cache-ttl", "soon")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to parse cache-ttl soon")
	})

	t.Run("missing config file", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, startCmd, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to load config file")
	})
}

func TestStartCmdValid(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		server := &mockServer{}

		startCmd, err := Cmd(server)
		require.NoError(t, err)

		require.NoError(t, execute(t, startCmd, "--api-host", "localhost:8080", "--log-level", "DEBUG",
			"--network", "dev", "--cache-size", "16"))
		require.Equal(t, "localhost:8080", server.host)
		require.Equal(t, spi.DEBUG, log.GetLevel(""))

		srv := server.serve(t)
		require.Equal(t, http.StatusOK, get(t, srv.URL+"/implementors", ""))
		require.Equal(t, http.StatusOK, get(t, srv.URL+"/metrics", ""))
		require.Equal(t, http.StatusOK, get(t, srv.URL+"/accounts/identities", ""))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(agentHostEnvKey, "localhost:9090")
		t.Setenv(logLevelEnvKey, "INFO")

		server := &mockServer{}

		startCmd, err := Cmd(server)
		require.NoError(t, err)

		require.NoError(t, execute(t, startCmd))
		require.Equal(t, "localhost:9090", server.host)
		require.Equal(t, spi.INFO, log.GetLevel(""))
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
			"api-host: localhost:7070",
			"network: dev",
			"database-type: leveldb",
			"database-path: " + filepath.Join(t.TempDir(), "db"),
		}, "\n")), 0o600))

		server := &mockServer{}

		startCmd, err := Cmd(server)
		require.NoError(t, err)

		require.NoError(t, execute(t, startCmd, "--config", path, "--api-host", "localhost:6060"))
		require.Equal(t, "localhost:6060", server.host)
	})

	t.Run("bearer token", func(t *testing.T) {
		server := &mockServer{}

		startCmd, err := Cmd(server)
		require.NoError(t, err)

		require.NoError(t, execute(t, startCmd, "--api-host", "localhost:8080", "--api-token", "secret"))

		srv := server.serve(t)
		require.Equal(t, http.StatusUnauthorized, get(t, srv.URL+"/implementors", ""))
		require.Equal(t, http.StatusUnauthorized, get(t, srv.URL+"/implementors", "wrong"))
		require.Equal(t, http.StatusOK, get(t, srv.URL+"/implementors", "secret"))
	})
}

func TestNodeCmd(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		nodeCmd, err := NodeCmd(&mockServer{})
		require.NoError(t, err)

		err = execute(t, nodeCmd)
		require.Error(t, err)
		require.Contains(t, err.Error(), "Neither host (command line flag) nor IDENTITY_NODE_HOST")
	})

	t.Run("leveldb", func(t *testing.T) {
		server := &mockServer{}

		nodeCmd, err := NodeCmd(server)
		require.NoError(t, err)

		require.NoError(t, execute(t, nodeCmd, "--host", "localhost:14265", "--network", "dev",
			"--database-type", "leveldb", "--database-path", t.TempDir()))

		srv := server.serve(t)
		require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/v1/info", ""))
	})
}

func TestAgentAgainstNode(t *testing.T) {
	nodeServer := &mockServer{}

	nodeCmd, err := NodeCmd(nodeServer)
	require.NoError(t, err)
	require.NoError(t, execute(t, nodeCmd, "--host", "localhost:14265", "--network", "dev"))

	node := nodeServer.serve(t)

	agentServer := &mockServer{}

	startCmd, err := Cmd(agentServer)
	require.NoError(t, err)
	require.NoError(t, execute(t, startCmd, "--api-host", "localhost:8080", "--network", "dev",
		"--node-url", node.URL))

	agent := agentServer.serve(t)

	resp, err := http.Post(agent.URL+"/accounts/identities", "application/json", //nolint:noctx
		strings.NewReader(`{"name":"alice"}`))
	require.NoError(t, err)

	var created account.IdentitySnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, created.Published)

	id := created.State.DID.String()
	require.Equal(t, http.StatusOK, get(t, agent.URL+"/identities/"+id, ""))

	t.Run("resolve", func(t *testing.T) {
		resolveCmd, err := ResolveCmd()
		require.NoError(t, err)

		var out bytes.Buffer
		resolveCmd.SetOut(&out)

		require.NoError(t, execute(t, resolveCmd, id, "--node-url", node.URL))
		require.Contains(t, out.String(), id)
	})

	t.Run("resolve history", func(t *testing.T) {
		resolveCmd, err := ResolveCmd()
		require.NoError(t, err)

		var out bytes.Buffer
		resolveCmd.SetOut(&out)

		require.NoError(t, execute(t, resolveCmd, id, "--node-url", node.URL, "--history", "true"))
		require.Contains(t, out.String(), "integrationChainData")
	})

	t.Run("resolve invalid did", func(t *testing.T) {
		resolveCmd, err := ResolveCmd()
		require.NoError(t, err)

		resolveCmd.SetOut(&bytes.Buffer{})
		resolveCmd.SetErr(&bytes.Buffer{})

		require.Error(t, execute(t, resolveCmd, "did:example:123", "--node-url", node.URL))
	})
}
