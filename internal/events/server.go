// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer is an in-process NATS server with JetStream, for single
// binary deployments that still want a durable event log.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// EmbeddedConfig configures the embedded NATS server.
type EmbeddedConfig struct {
	Host string
	// Port -1 picks a random free port.
	Port     int
	StoreDir string
}

// EmbeddedConfigFromURL listens on the host and port of listenURL, which is
// the URL the rest of the process would otherwise connect to.
func EmbeddedConfigFromURL(listenURL, storeDir string) (EmbeddedConfig, error) {
	cfg := EmbeddedConfig{Host: "127.0.0.1", Port: 4222, StoreDir: storeDir}
	if listenURL == "" {
		return cfg, nil
	}
	u, err := url.Parse(listenURL)
	if err != nil {
		return cfg, fmt.Errorf("parse NATS listen URL: %w", err)
	}
	if h := u.Hostname(); h != "" {
		cfg.Host = h
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return cfg, fmt.Errorf("parse NATS port %q: %w", p, err)
		}
		cfg.Port = n
	}
	return cfg, nil
}

// StartEmbeddedServer starts a NATS server with JetStream storing its data
// in cfg.StoreDir.
func StartEmbeddedServer(cfg EmbeddedConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "engagefeed-events",
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoSigs:     true,
		NoLog:      true,
		MaxPayload: 1 << 20,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// IsRunning reports server health.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit or ctx to expire.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
