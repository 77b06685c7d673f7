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

// Package compiler is the Client's Compiler collaborator (spec §6):
// `compileLLL(src, optimize?) -> bytes`. The contract-language frontend
// itself is out of scope (spec §1); this package only carries the
// interface boundary a doCreate-style host call would invoke.
package compiler

import "errors"

// ErrUnsupportedSource names the absence of a real LLL frontend; the
// passthrough CompileLLL below never returns it (an empty source is its
// only error).
var ErrUnsupportedSource = errors.New("compiler: LLL frontend not implemented")

// Compiler is the Client's Compiler collaborator.
type Compiler interface {
	CompileLLL(src string, optimize bool) ([]byte, error)
}

// passthroughCompiler treats its input as already-assembled bytecode
// (hex-free raw bytes), the minimal behavior that lets callers exercise
// doCreate/transact's code path end to end without a real LLL frontend.
type passthroughCompiler struct{}

// New returns the module's Compiler implementation.
func New() Compiler { return passthroughCompiler{} }

func (passthroughCompiler) CompileLLL(src string, optimize bool) ([]byte, error) {
	if src == "" {
		return nil, errors.New("compiler: empty source")
	}
	return []byte(src), nil
}
