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

// Package config is the Client's on-disk configuration file, a TOML
// document loaded/dumped the way cmd/ranger's loadConfig/dumpConfig do it,
// trimmed to this module's tunables (spec §4.1.2: data directory,
// coinbase, mining, tick/mine budgets, network, event sink).
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"

	"github.com/ground-x/coreclient/common"
)

// tomlSettings mirrors cmd/ranger's convention of keeping TOML keys
// identical to the Go struct field names, and annotating unknown fields
// with a link to the owning type's package.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see %s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Config is the Client's full set of tunables.
type Config struct {
	// DataDir is the directory holding the chain store, state database,
	// and version-gate marker files (spec §4.6).
	DataDir string

	// Coinbase receives mining rewards and transaction fees credited by
	// state.applyLocked.
	Coinbase common.Address

	// Mine starts the Worker's mine phase at launch when true.
	Mine bool

	// Paranoid enables State.amIJustParanoid's consistency check (spec
	// §4.1): before a fresh mining candidate is committed, `post` must still
	// extend the chain head, and mining is switched off if it does not.
	Paranoid bool

	// TickSleepMs is carried into the Client but not read by the Worker
	// loop: an idle tick (mining off) always sleeps params.IdleSleep.
	TickSleepMs int

	// MineBudgetMs bounds each call into state.Mine per tick, so the
	// Worker loop keeps servicing network/sync phases even while mining.
	MineBudgetMs int

	Network NetworkConfig
	Events  EventsConfig
}

// NetworkConfig configures the Client's Network collaborator.
type NetworkConfig struct {
	ClientVersion string
	NetworkID     uint64
	ListenPort    int
	IdealPeers    int
}

// EventsConfig configures the Client's external Kafka EventSink. Brokers
// left empty disables the sink entirely (events.New returns a nil *Sink).
type EventsConfig struct {
	Brokers []string
}

// Default is this module's out-of-the-box configuration.
var Default = Config{
	DataDir:      "coreclient-data",
	Mine:         false,
	TickSleepMs:  200,
	MineBudgetMs: 50,
	Network: NetworkConfig{
		ClientVersion: "coreclient/1.0",
		NetworkID:     1,
		ListenPort:    30303,
		IdealPeers:    25,
	},
}

// Load reads a TOML configuration file into cfg, which should already
// hold whatever defaults the caller wants to fall back on for fields the
// file omits.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// Save writes cfg to file as TOML, creating or truncating it.
func Save(file string, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(file, out, 0644)
}
