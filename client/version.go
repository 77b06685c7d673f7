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
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/ground-x/coreclient/params"
)

const (
	protocolFile = "protocol"
	databaseFile = "database"
)

// checkVersionGate is the spec §4.6 version gate: it reads <dataDir>/protocol
// and <dataDir>/database, each holding an encoded unsigned integer, and
// reports whether Chain/StateDB must be opened in wipe mode. An ephemeral
// (empty) dataDir, or either file missing/mismatched/corrupt, forces a wipe.
func checkVersionGate(dataDir string) (wipe bool, err error) {
	if dataDir == "" {
		return true, nil
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return false, err
	}

	protocol, okP := readVersionFile(filepath.Join(dataDir, protocolFile))
	database, okD := readVersionFile(filepath.Join(dataDir, databaseFile))
	if !okP || !okD || protocol != params.ProtocolVersion || database != params.DatabaseVersion {
		return true, nil
	}
	return false, nil
}

func readVersionFile(path string) (uint, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var v uint
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return 0, false
	}
	return v, true
}

// writeVersionGate (re)writes both version-gate files after a successful
// open, per spec §4.6.
func writeVersionGate(dataDir string) error {
	if dataDir == "" {
		return nil
	}
	if err := writeVersionFile(filepath.Join(dataDir, protocolFile), params.ProtocolVersion); err != nil {
		return err
	}
	return writeVersionFile(filepath.Join(dataDir, databaseFile), params.DatabaseVersion)
}

func writeVersionFile(path string, v uint) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
