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

// Package network is the Client's Network collaborator (spec §6): a
// minimal in-process peer simulator, grounded on the shape of
// networks/p2p's Server/Peer split without its discovery protocol or wire
// codec (the real p2p wire protocol is out of scope per spec §1). It lets
// the Client's startNetwork/stopNetwork/connect/peers surface be exercised
// against loopback peers in tests and the CLI.
package network

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/log"
)

var logger = log.NewModuleLogger(log.Network)

// PeerInfo is the spec's `peers() -> PeerInfo[]` element.
type PeerInfo struct {
	ID       string
	Addr     string
	Height   uint64
}

// TransactionQueue is the sliver of txpool.Queue the Network needs to
// exchange transactions with peers.
type TransactionQueue interface {
	AttemptImport(tx *types.Transaction) error
	Pending() []*types.Transaction
}

// BlockQueue is the sliver of blockqueue.Queue the Network needs to stage
// blocks received from peers.
type BlockQueue interface {
	Stage(block *types.Block)
}

// peer is an in-process loopback peer: another Network instance this one
// has "connected" to. Messages flow by direct queue manipulation rather
// than a socket, since a real wire codec is out of scope.
type peer struct {
	id   string
	addr string
	net  *Network
}

// Network is this module's Network collaborator. Queueing a Stop is a
// destructive, observable-from-tests shutdown (spec §5's net-lock guards
// exactly this pointer's construction/destruction and all calls on it).
type Network struct {
	mu sync.RWMutex

	clientVersion string
	netID         uint64
	listenAddr    string
	idealPeers    int

	peers map[string]*peer

	localTxSource TransactionQueue
	stopped       bool
}

// SetLocalTxSource lets a peer's Sync pull this Network's locally known
// pending transactions. The Client calls this once after constructing
// both the Network and the TransactionQueue.
func (n *Network) SetLocalTxSource(q TransactionQueue) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.localTxSource = q
}

// New is the spec's `Network.new(clientVersion, Chain, netId,
// listenPort?, mode, publicIP, upnp)`, trimmed to the parameters this
// in-process simulator can use: there is no real listen socket to bind,
// so "port already bound" (spec §7 item 2) never arises here.
func New(clientVersion string, netID uint64, listenPort int) (*Network, error) {
	return &Network{
		clientVersion: clientVersion,
		netID:         netID,
		listenAddr:    fmt.Sprintf("127.0.0.1:%d", listenPort),
		idealPeers:    25,
		peers:         map[string]*peer{},
	}, nil
}

// SetIdealPeerCount is the spec's `setIdealPeerCount(n)`.
func (n *Network) SetIdealPeerCount(c int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.idealPeers = c
}

// Connect is the spec's `connect(host, port)`: establishes a loopback
// peer link to other, another in-process Network. A real implementation
// would dial a socket; this one just registers each side in the other's
// peer table.
func (n *Network) Connect(other *Network, host string, port int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return errors.New("network: stopped")
	}
	id := fmt.Sprintf("%s:%d", host, port)
	n.peers[id] = &peer{id: id, addr: id, net: other}

	other.mu.Lock()
	defer other.mu.Unlock()
	selfID := n.listenAddr
	other.peers[selfID] = &peer{id: selfID, addr: selfID, net: n}
	return nil
}

// Peers is the spec's `peers() -> PeerInfo[]`.
func (n *Network) Peers() []PeerInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]PeerInfo, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, PeerInfo{ID: p.id, Addr: p.addr})
	}
	return out
}

// PeerCount is the spec's `peerCount()`.
func (n *Network) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// Stop tears down this Network, severing every loopback peer link. Called
// under net-lock by the Client's stopNetwork.
func (n *Network) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	n.peers = map[string]*peer{}
}

// Process is the spec's `process()`: handle incoming socket events. This
// simulator has no socket to poll; loopback peers deliver synchronously
// inside Sync, so Process is a no-op kept for interface parity with a
// real transport.
func (n *Network) Process() {}

// Sync is the spec's `sync(TransactionQueue, BlockQueue)`: it pulls every
// connected peer's pending set into this node's queue; the reverse
// direction happens only when the peer runs its own Sync, mirroring
// gossip without a real broadcast topology. blockQueue is
// accepted for interface parity with the spec's signature; this
// in-process simulator has no independent source of blocks to gossip
// (mined/imported blocks reach Chain directly), so block exchange is a
// no-op here.
func (n *Network) Sync(txQueue TransactionQueue, blockQueue BlockQueue) {
	n.mu.RLock()
	peers := make([]*peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	n.mu.RUnlock()

	for _, p := range peers {
		if p.net == nil {
			continue
		}
		for _, tx := range p.net.pendingSnapshot() {
			if err := txQueue.AttemptImport(tx); err != nil {
				logger.Debug("peer sync: transaction not imported", "peer", p.id, "err", err)
			}
		}
	}
}

// pendingSnapshot lets a peer's Sync pull this Network's locally known
// pending transactions without reaching into the Client directly.
func (n *Network) pendingSnapshot() []*types.Transaction {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.localTxSource == nil {
		return nil
	}
	return n.localTxSource.Pending()
}
