/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// config file flag.
	configFileFlagName      = "config"
	configFileEnvKey        = "IDENTITY_CONFIG"
	configFileFlagShorthand = "c"
	configFileFlagUsage     = "Path to a YAML config file. Keys are flag names, flags and environment variables" +
		" take precedence over the file." +
		" Alternatively, this can be set with the following environment variable: " + configFileEnvKey

	// log level.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "IDENTITY_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey

	// network flag.
	networkFlagName      = "network"
	networkEnvKey        = "IDENTITY_NETWORK"
	networkFlagShorthand = "n"
	networkFlagUsage     = "Tangle network name. Defaults to " + defaultNetwork + " if not set." +
		" Alternatively, this can be set with the following environment variable: " + networkEnvKey

	// database flags.
	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "IDENTITY_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database to use. Supported options: mem, leveldb." +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databasePathFlagName      = "database-path"
	databasePathEnvKey        = "IDENTITY_DATABASE_PATH"
	databasePathFlagShorthand = "v"
	databasePathFlagUsage     = "Directory of the leveldb database. Not needed if using memstore." +
		" Alternatively, this can be set with the following environment variable: " + databasePathEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutEnvKey    = "IDENTITY_DATABASE_TIMEOUT"
	databaseTimeoutDefault   = "30"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey

	databaseTypeMemOption     = "mem"
	databaseTypeLevelDBOption = "leveldb"

	defaultNetwork = "main"
)

var errMissingHost = errors.New("host not provided")

// loadConfig reads the optional config file and layers the command flags over it.
func loadConfig(cmd *cobra.Command) (*koanf.Koanf, error) {
	k := koanf.New(".")

	path, err := getUserSetVar(cmd, nil, configFileFlagName, configFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err = k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}

		logger.Debugf("loaded config file %s", path)
	}

	if err = k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	return k, nil
}

// getUserSetVar returns the value of flagName from the command line, then envKey, then the config file.
func getUserSetVar(cmd *cobra.Command, k *koanf.Koanf, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	if value, isSet := os.LookupEnv(envKey); isSet {
		return value, nil
	}

	if k != nil && k.String(flagName) != "" {
		return k.String(flagName), nil
	}

	if isOptional {
		return "", nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getIntVar(cmd *cobra.Command, k *koanf.Koanf, flagName, envKey, defaultValue string) (int, error) {
	v, err := getUserSetVar(cmd, k, flagName, envKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		v = defaultValue
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %s: %w", flagName, v, err)
	}

	return i, nil
}

func getDurationVar(cmd *cobra.Command, k *koanf.Koanf, flagName, envKey, defaultValue string) (time.Duration, error) {
	v, err := getUserSetVar(cmd, k, flagName, envKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		v = defaultValue
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %s: %w", flagName, v, err)
	}

	return d, nil
}

func getBoolVar(cmd *cobra.Command, k *koanf.Koanf, flagName, envKey string, defaultValue bool) (bool, error) {
	v, err := getUserSetVar(cmd, k, flagName, envKey, true)
	if err != nil {
		return false, err
	}

	if v == "" {
		return defaultValue, nil
	}

	return strconv.ParseBool(v)
}

type dbParam struct {
	dbType  string
	path    string
	timeout uint64
}

func getDBParam(cmd *cobra.Command, k *koanf.Koanf) (*dbParam, error) {
	param := &dbParam{}

	var err error

	param.dbType, err = getUserSetVar(cmd, k, databaseTypeFlagName, databaseTypeEnvKey, true)
	if err != nil {
		return nil, err
	}

	if param.dbType == "" {
		param.dbType = databaseTypeMemOption
	}

	param.path, err = getUserSetVar(cmd, k, databasePathFlagName, databasePathEnvKey, true)
	if err != nil {
		return nil, err
	}

	t, err := getIntVar(cmd, k, databaseTimeoutFlagName, databaseTimeoutEnvKey, databaseTimeoutDefault)
	if err != nil {
		return nil, err
	}

	if t <= 0 {
		t, _ = strconv.Atoi(databaseTimeoutDefault) //nolint:errcheck
	}

	param.timeout = uint64(t)

	return param, nil
}

func createCommonFlags(flags *pflag.FlagSet) {
	flags.StringP(configFileFlagName, configFileFlagShorthand, "", configFileFlagUsage)
	flags.StringP(logLevelFlagName, "", "", logLevelFlagUsage)
	flags.StringP(networkFlagName, networkFlagShorthand, "", networkFlagUsage)
}

func createDBFlags(flags *pflag.FlagSet) {
	flags.StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)
	flags.StringP(databasePathFlagName, databasePathFlagShorthand, "", databasePathFlagUsage)
	flags.StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)
}
