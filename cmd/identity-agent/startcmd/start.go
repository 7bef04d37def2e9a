/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package startcmd holds the commands of the identity agent.
package startcmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nanderstabel/identity/pkg/account"
	"github.com/nanderstabel/identity/pkg/actor"
	"github.com/nanderstabel/identity/pkg/controller/rest"
	_ "github.com/nanderstabel/identity/pkg/credential" // registers the credential implementors
	"github.com/nanderstabel/identity/pkg/iota/resolver"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

const (
	// api host flag.
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "IDENTITY_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	// api token flag.
	agentTokenFlagName      = "api-token"
	agentTokenEnvKey        = "IDENTITY_API_TOKEN" // nolint:gosec
	agentTokenFlagShorthand = "t"
	agentTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agentTokenEnvKey

	// node url flag.
	nodeURLFlagName      = "node-url"
	nodeURLEnvKey        = "IDENTITY_NODE_URL"
	nodeURLFlagShorthand = "u"
	nodeURLFlagUsage     = "URL of the Tangle node API. Defaults to the public node of the network." +
		" Alternatively, this can be set with the following environment variable: " + nodeURLEnvKey

	// resolver cache flags.
	cacheSizeFlagName  = "cache-size"
	cacheSizeEnvKey    = "IDENTITY_CACHE_SIZE"
	cacheSizeDefault   = "0"
	cacheSizeFlagUsage = "Number of resolved documents kept in memory. Defaults to no cache." +
		" Alternatively, this can be set with the following environment variable: " + cacheSizeEnvKey

	cacheTTLFlagName  = "cache-ttl"
	cacheTTLEnvKey    = "IDENTITY_CACHE_TTL"
	cacheTTLDefault   = "1m"
	cacheTTLFlagUsage = "Lifetime of cached documents, e.g. 30s. Default: " + cacheTTLDefault + "." +
		" Alternatively, this can be set with the following environment variable: " + cacheTTLEnvKey

	// account flags.
	autoPublishFlagName  = "auto-publish"
	autoPublishEnvKey    = "IDENTITY_AUTO_PUBLISH"
	autoPublishFlagUsage = "Publish identities after every account update. Possible values [true] [false]." +
		" Defaults to true if not set." +
		" Alternatively, this can be set with the following environment variable: " + autoPublishEnvKey

	// tls flags.
	agentTLSCertFileFlagName  = "tls-cert-file"
	agentTLSCertFileEnvKey    = "IDENTITY_TLS_CERT_FILE"
	agentTLSCertFileFlagUsage = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSCertFileEnvKey

	agentTLSKeyFileFlagName  = "tls-key-file"
	agentTLSKeyFileEnvKey    = "IDENTITY_TLS_KEY_FILE"
	agentTLSKeyFileFlagUsage = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSKeyFileEnvKey
)

type agentParameters struct {
	server      server
	host        string
	token       string
	network     tangle.Network
	nodeURL     string
	cacheSize   int
	cacheTTL    time.Duration
	autoPublish bool
	dbParam     *dbParam
	tlsCertFile string
	tlsKeyFile  string
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an agent",
		Long:  `Start an identity agent serving the resolver and account REST API`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getAgentParameters(cmd)
			if err != nil {
				return err
			}

			parameters.server = server

			return startAgent(parameters)
		},
	}
}

func getAgentParameters(cmd *cobra.Command) (*agentParameters, error) { //nolint:funlen
	k, err := prepare(cmd)
	if err != nil {
		return nil, err
	}

	parameters := &agentParameters{}

	parameters.host, err = getUserSetVar(cmd, k, agentHostFlagName, agentHostEnvKey, false)
	if err != nil {
		return nil, err
	}

	parameters.token, err = getUserSetVar(cmd, k, agentTokenFlagName, agentTokenEnvKey, true)
	if err != nil {
		return nil, err
	}

	parameters.network, err = getNetwork(cmd, k)
	if err != nil {
		return nil, err
	}

	parameters.nodeURL, err = getUserSetVar(cmd, k, nodeURLFlagName, nodeURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	parameters.cacheSize, err = getIntVar(cmd, k, cacheSizeFlagName, cacheSizeEnvKey, cacheSizeDefault)
	if err != nil {
		return nil, err
	}

	parameters.cacheTTL, err = getDurationVar(cmd, k, cacheTTLFlagName, cacheTTLEnvKey, cacheTTLDefault)
	if err != nil {
		return nil, err
	}

	parameters.autoPublish, err = getBoolVar(cmd, k, autoPublishFlagName, autoPublishEnvKey, true)
	if err != nil {
		return nil, err
	}

	parameters.dbParam, err = getDBParam(cmd, k)
	if err != nil {
		return nil, err
	}

	parameters.tlsCertFile, err = getUserSetVar(cmd, k, agentTLSCertFileFlagName, agentTLSCertFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	parameters.tlsKeyFile, err = getUserSetVar(cmd, k, agentTLSKeyFileFlagName, agentTLSKeyFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	return parameters, nil
}

func createFlags(startCmd *cobra.Command) {
	createCommonFlags(startCmd.Flags())
	createDBFlags(startCmd.Flags())

	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)
	startCmd.Flags().StringP(agentTokenFlagName, agentTokenFlagShorthand, "", agentTokenFlagUsage)
	startCmd.Flags().StringP(nodeURLFlagName, nodeURLFlagShorthand, "", nodeURLFlagUsage)
	startCmd.Flags().StringP(cacheSizeFlagName, "", "", cacheSizeFlagUsage)
	startCmd.Flags().StringP(cacheTTLFlagName, "", "", cacheTTLFlagUsage)
	startCmd.Flags().StringP(autoPublishFlagName, "", "", autoPublishFlagUsage)
	startCmd.Flags().StringP(agentTLSCertFileFlagName, "", "", agentTLSCertFileFlagUsage)
	startCmd.Flags().StringP(agentTLSKeyFileFlagName, "", "", agentTLSKeyFileFlagUsage)
}

func startAgent(parameters *agentParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	handler, err := createAgentHandler(parameters)
	if err != nil {
		return fmt.Errorf("failed to start identity agent on port [%s]: %w", parameters.host, err)
	}

	logger.Infof("Starting identity agent on host [%s] for network [%s]", parameters.host, parameters.network)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start identity agent on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

// createAgentHandler wires the node client, resolver, account and actor behind the REST router.
func createAgentHandler(parameters *agentParameters) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	clientMetrics, err := tangle.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("node client metrics: %w", err)
	}

	clientOpts := []tangle.NodeClientOption{tangle.WithMetrics(clientMetrics)}
	if parameters.nodeURL != "" {
		clientOpts = append(clientOpts, tangle.WithNodeURL(parameters.nodeURL))
	}

	client, err := tangle.NewNodeClient(parameters.network, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("node client: %w", err)
	}

	resolverMetrics, err := resolver.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("resolver metrics: %w", err)
	}

	resolverOpts := []resolver.Option{resolver.WithMetrics(resolverMetrics)}

	if parameters.cacheSize > 0 {
		resolverOpts = append(resolverOpts, resolver.WithCache(parameters.cacheSize, parameters.cacheTTL))
	}

	r := resolver.New(client, resolverOpts...)

	provider, err := createStoreProvider(parameters.dbParam)
	if err != nil {
		return nil, err
	}

	acc, err := account.New(provider,
		account.WithResolver(r),
		account.WithNetwork(parameters.network),
		account.WithAutoPublish(parameters.autoPublish),
	)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}

	a := actor.New()
	actor.AddIdentityHandlers(a, acc)

	var middlewares []mux.MiddlewareFunc
	if parameters.token != "" {
		middlewares = append(middlewares, authorizationMiddleware(parameters.token))
	}

	return rest.New(r,
		rest.WithAccount(acc),
		rest.WithActor(a),
		rest.WithMetrics(reg),
	).Router(middlewares...), nil
}
