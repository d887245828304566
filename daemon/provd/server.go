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

// Package provd runs a provenance node behind its REST API.
package provd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/algorand/go-provenance/config"
	apiServer "github.com/algorand/go-provenance/daemon/provd/api/server"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/node"
	"github.com/algorand/go-provenance/util/metrics"
	"github.com/algorand/go-provenance/util/tokens"
)

// maxHeaderBytes must have enough room to hold an api token
const maxHeaderBytes = 4096

// PIDFilename and NetFilename are written into the data directory while the daemon runs
const (
	PIDFilename = "provd.pid"
	NetFilename = "provd.net"
)

// Server represents an instance of the REST API HTTP server
type Server struct {
	RootPath string
	Genesis  bookkeeping.Genesis

	log      logging.Logger
	logFile  *os.File
	node     *node.ProvenanceNode
	server   http.Server
	stopping chan struct{}
	pidFile  string
	netFile  string
}

// resolveLogPath makes a relative LogFile relative to the data directory.
func resolveLogPath(rootPath, logFile string) string {
	if logFile == "" || filepath.IsAbs(logFile) {
		return logFile
	}
	return filepath.Join(rootPath, logFile)
}

// Initialize sets up logging and creates the node with its network services
func (s *Server) Initialize(cfg config.Local) error {
	s.log = logging.Base()

	var logWriter io.Writer = os.Stderr
	if path := resolveLogPath(s.RootPath, cfg.LogFile); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		fmt.Println("Logging to: ", path)
		s.logFile = f
		logWriter = f
	}
	s.log.SetOutput(logWriter)
	s.log.SetJSONFormatter()
	s.log.SetLevel(logging.Level(cfg.BaseLoggerDebugLevel))
	setupDeadlockLogger(s.log)

	if err := cfg.Validate(); err != nil {
		return err
	}

	s.log.Infoln("++++++++++++++++++++++++++++++++++++++++")
	s.log.Infof("Logging Starting: network %s, genesis %s", cfg.NetworkName, s.Genesis.ID())
	s.log.Infoln("++++++++++++++++++++++++++++++++++++++++")

	n, err := node.MakeFull(s.log, s.RootPath, cfg, s.Genesis, node.Overrides{})
	if err != nil {
		return fmt.Errorf("couldn't initialize the node: %w", err)
	}
	s.node = n
	return nil
}

// makeListener opens the REST listener. Port 0 picks a free port.
func makeListener(addr string) (net.Listener, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	return net.Listen("tcp", addr)
}

// Start starts the node and serves the REST API until the process is
// signalled or the server fails.
func (s *Server) Start() error {
	s.log.Info("Trying to start a provenance node")
	if err := s.node.Start(); err != nil {
		return fmt.Errorf("failed to start the node: %w", err)
	}
	s.log.Info("Successfully started a provenance node.")

	cfg := s.node.Config()

	var apiToken string
	if cfg.EnableAPIToken {
		var err error
		apiToken, err = tokens.GetAndValidateAPIToken(s.RootPath, tokens.APITokenFilename)
		if err != nil {
			s.node.Stop()
			return fmt.Errorf("APIToken error: %w", err)
		}
	}
	var metricsHandler http.Handler
	if cfg.EnableMetrics {
		metricsHandler = metrics.DefaultRegistry().Handler()
	}

	listener, err := makeListener(cfg.EndpointAddress)
	if err != nil {
		s.node.Stop()
		return fmt.Errorf("could not listen on %s: %w", cfg.EndpointAddress, err)
	}
	addr := listener.Addr().String()

	s.stopping = make(chan struct{})
	s.server = http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	e := apiServer.NewRouter(s.log, s.node, s.stopping, apiToken, metricsHandler, listener)

	s.pidFile = filepath.Join(s.RootPath, PIDFilename)
	s.netFile = filepath.Join(s.RootPath, NetFilename)
	if err := os.WriteFile(s.pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		s.Stop()
		return fmt.Errorf("pidfile error: %w", err)
	}
	if err := os.WriteFile(s.netFile, []byte(fmt.Sprintf("%s\n", addr)), 0644); err != nil {
		s.Stop()
		return fmt.Errorf("netfile error: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- e.StartServer(&s.server)
	}()

	// Handle signals cleanly
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	signal.Ignore(syscall.SIGHUP)

	fmt.Printf("Node running and accepting REST requests on %v. Press Ctrl-C to exit\n", addr)
	select {
	case err := <-errChan:
		s.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.log.Info("Node exited successfully")
	case sig := <-c:
		fmt.Printf("Exiting on %v\n", sig)
		s.Stop()
	}
	return nil
}

// Stop shuts the REST server and the node down
func (s *Server) Stop() {
	if s.stopping != nil {
		// abort pending long polls
		close(s.stopping)
		s.stopping = nil
	}

	if err := s.server.Shutdown(context.Background()); err != nil {
		s.log.Error(err)
	}
	s.node.Stop()

	for _, f := range []string{s.pidFile, s.netFile} {
		if f != "" {
			os.Remove(f)
		}
	}
	if s.logFile != nil {
		s.log.SetOutput(os.Stderr)
		s.logFile.Close()
		s.logFile = nil
	}
}

// ReadNetFile returns the REST address a running daemon wrote into rootPath.
func ReadNetFile(rootPath string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(rootPath, NetFilename))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
