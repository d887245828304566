// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/algorand/go-provenance/daemon/provd"
	"github.com/algorand/go-provenance/daemon/provd/api/client"
	"github.com/algorand/go-provenance/util/tokens"
)

var dataDir string
var endpoint string
var apiToken string
var requestTimeout time.Duration

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "datadir", "d", "", "Data directory of the node (defaults to $PROV_DATA)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "REST endpoint of the node, overriding the data directory")
	rootCmd.PersistentFlags().StringVarP(&apiToken, "token", "t", "", "API token, overriding the data directory token file")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", time.Minute, "Timeout of a single command")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(blockCmd)
}

var rootCmd = &cobra.Command{
	Use:   "provctl",
	Short: "CLI for interacting with a provenance node",
	Long:  `provctl publishes artifacts, inspects the transparency log and manages the authorized node set of a running provd.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return os.Getenv("PROV_DATA")
}

// clientParams finds the REST address and token of the node, from the flags
// first and the data directory second.
func clientParams(dir, endpointFlag, tokenFlag string) (url.URL, string, error) {
	addr := endpointFlag
	if addr == "" {
		if dir == "" {
			return url.URL{}, "", errors.New(errorNoDataDir)
		}
		var err error
		addr, err = provd.ReadNetFile(dir)
		if err != nil {
			return url.URL{}, "", fmt.Errorf(errorNodeNotRunning, dir, err)
		}
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return url.URL{}, "", err
	}

	token := tokenFlag
	if token == "" && dir != "" {
		raw, err := os.ReadFile(filepath.Join(dir, tokens.APITokenFilename))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return url.URL{}, "", err
		}
		token = strings.TrimSpace(string(raw))
	}
	return *u, token, nil
}

func ensureClient() client.RestClient {
	u, token, err := clientParams(resolveDataDir(), endpoint, apiToken)
	if err != nil {
		reportErrorln(err)
	}
	return client.MakeRestClient(u, token)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func reportInfof(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

func reportErrorln(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func reportErrorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
