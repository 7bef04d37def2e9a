/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanderstabel/identity/pkg/iota/tangle"
	"github.com/nanderstabel/identity/pkg/node"
)

const (
	nodeHostFlagName      = "host"
	nodeHostEnvKey        = "IDENTITY_NODE_HOST"
	nodeHostFlagShorthand = "a"
	nodeHostFlagUsage     = "Host Name:Port of the node API." +
		" Alternatively, this can be set with the following environment variable: " + nodeHostEnvKey
)

type nodeParameters struct {
	server  server
	host    string
	network tangle.Network
	dbParam *dbParam
}

// NodeCmd returns the Cobra command running a development Tangle node.
func NodeCmd(server server) (*cobra.Command, error) {
	nodeCmd := &cobra.Command{
		Use:   "node",
		Short: "Start a development node",
		Long:  `Start a development Tangle node serving the node message API from local storage`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := prepare(cmd)
			if err != nil {
				return err
			}

			parameters := &nodeParameters{server: server}

			parameters.host, err = getUserSetVar(cmd, k, nodeHostFlagName, nodeHostEnvKey, false)
			if err != nil {
				return err
			}

			parameters.network, err = getNetwork(cmd, k)
			if err != nil {
				return err
			}

			parameters.dbParam, err = getDBParam(cmd, k)
			if err != nil {
				return err
			}

			return startNode(parameters)
		},
	}

	createCommonFlags(nodeCmd.Flags())
	createDBFlags(nodeCmd.Flags())
	nodeCmd.Flags().StringP(nodeHostFlagName, nodeHostFlagShorthand, "", nodeHostFlagUsage)

	return nodeCmd, nil
}

func startNode(parameters *nodeParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	provider, err := createStoreProvider(parameters.dbParam)
	if err != nil {
		return err
	}

	mt, err := tangle.NewPersistentMemTangle(provider, tangle.WithNetwork(parameters.network))
	if err != nil {
		return fmt.Errorf("failed to load node messages: %w", err)
	}

	logger.Infof("Starting development node on host [%s] for network [%s]", parameters.host, parameters.network)

	err = parameters.server.ListenAndServe(parameters.host, node.New(mt).Handler(), "", "")
	if err != nil {
		return fmt.Errorf("failed to start node on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}
