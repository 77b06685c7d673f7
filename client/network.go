// Copyright 2024 The coreclient Authors
// This file is part of the coreclient library.
//
// The coreclient library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The coreclient library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the coreclient library. If not, see <http://www.gnu.org/licenses/>.

package client

import (
	"github.com/ground-x/coreclient/config"
	"github.com/ground-x/coreclient/network"
)

// StartNetwork is the spec's `startNetwork(...)`. Only net-lock is held;
// per §5's lock ordering (net-lock < client-lock), this method must never
// be called while client-lock is held by the same goroutine.
func (c *Client) StartNetwork(cfg config.NetworkConfig) error {
	c.netMu.Lock()
	defer c.netMu.Unlock()
	return c.startNetworkLocked(cfg)
}

// startNetworkLocked assumes net-lock is held (or, during New, that no
// other goroutine can yet observe c.net).
func (c *Client) startNetworkLocked(cfg config.NetworkConfig) error {
	if c.net != nil {
		return nil
	}
	n, err := network.New(cfg.ClientVersion, cfg.NetworkID, cfg.ListenPort)
	if err != nil {
		return err
	}
	if cfg.IdealPeers > 0 {
		n.SetIdealPeerCount(cfg.IdealPeers)
	}
	n.SetLocalTxSource(c.txQueue)
	c.net = n
	logger.Info("network started", "clientVersion", cfg.ClientVersion, "networkId", cfg.NetworkID)
	return nil
}

// StopNetwork is the spec's `stopNetwork()`.
func (c *Client) StopNetwork() {
	c.netMu.Lock()
	defer c.netMu.Unlock()
	if c.net == nil {
		return
	}
	c.net.Stop()
	c.net = nil
	logger.Info("network stopped")
}

// Connect is the spec's `connect(host, port)`: dials out from this
// Client's Network to another in-process Network (the loopback simulator
// has no real socket to dial, so `other` stands in for a discovered peer).
func (c *Client) Connect(other *Client, host string, port int) error {
	c.netMu.Lock()
	n := c.net
	c.netMu.Unlock()
	if n == nil {
		return errNoNetwork
	}

	other.netMu.Lock()
	on := other.net
	other.netMu.Unlock()
	if on == nil {
		return errNoNetwork
	}

	return n.Connect(on, host, port)
}

// Peers is the spec's `peers() -> PeerInfo[]`.
func (c *Client) Peers() []network.PeerInfo {
	c.netMu.Lock()
	defer c.netMu.Unlock()
	if c.net == nil {
		return nil
	}
	return c.net.Peers()
}

// PeerCount is the spec's `peerCount()`.
func (c *Client) PeerCount() int {
	c.netMu.Lock()
	defer c.netMu.Unlock()
	if c.net == nil {
		return 0
	}
	return c.net.PeerCount()
}
