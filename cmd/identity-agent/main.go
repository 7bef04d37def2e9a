/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the identity agent: the account and resolver REST API, a development
// Tangle node and a command line resolver.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nanderstabel/identity/cmd/identity-agent/startcmd"
	"github.com/nanderstabel/identity/pkg/common/log"
)

func main() {
	// resolve prints documents on stdout
	log.Initialize(log.NewZapProvider(os.Stderr))

	rootCmd := &cobra.Command{
		Use: "identity-agent",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("identity/agent")

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	nodeCmd, err := startcmd.NodeCmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	resolveCmd, err := startcmd.ResolveCmd()
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd, nodeCmd, resolveCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run identity-agent: %s", err)
	}
}
