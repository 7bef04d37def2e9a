/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/resolver"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

const (
	historyFlagName  = "history"
	historyEnvKey    = "IDENTITY_RESOLVE_HISTORY"
	historyFlagUsage = "Print the message history of the DID instead of its document. Possible values [true] [false]." +
		" Alternatively, this can be set with the following environment variable: " + historyEnvKey
)

// ResolveCmd returns the Cobra command resolving a DID from a node.
func ResolveCmd() (*cobra.Command, error) {
	resolveCmd := &cobra.Command{
		Use:   "resolve <did>",
		Short: "Resolve a DID",
		Long:  `Resolve a DID from the Tangle node of its network and print the document`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := prepare(cmd)
			if err != nil {
				return err
			}

			id, err := did.Parse(args[0])
			if err != nil {
				return err
			}

			nodeURL, err := getUserSetVar(cmd, k, nodeURLFlagName, nodeURLEnvKey, true)
			if err != nil {
				return err
			}

			history, err := getBoolVar(cmd, k, historyFlagName, historyEnvKey, false)
			if err != nil {
				return err
			}

			var opts []tangle.NodeClientOption
			if nodeURL != "" {
				opts = append(opts, tangle.WithNodeURL(nodeURL))
			}

			client, err := tangle.NewNodeClient(id.Network(), opts...)
			if err != nil {
				return err
			}

			r := resolver.New(client)

			var out interface{}

			if history {
				out, err = r.ResolveHistory(cmd.Context(), *id)
			} else {
				out, err = r.Resolve(cmd.Context(), *id)
			}

			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if err = enc.Encode(out); err != nil {
				return fmt.Errorf("failed to print %s: %w", id, err)
			}

			return nil
		},
	}

	resolveCmd.Flags().StringP(configFileFlagName, configFileFlagShorthand, "", configFileFlagUsage)
	resolveCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
	resolveCmd.Flags().StringP(nodeURLFlagName, nodeURLFlagShorthand, "", nodeURLFlagUsage)
	resolveCmd.Flags().StringP(historyFlagName, "", "", historyFlagUsage)

	return resolveCmd, nil
}
