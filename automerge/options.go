// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package automerge

import (
	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/automerge/internal/actorid"
)

// TextEncoding names one of four text width encodings (§4.4.3). The
// value set with WithTextEncoding is only stored on the Document's
// config: SpliceText, Mark and cursor indices always count sequence
// elements (one per inserted rune), whichever encoding is selected.
type TextEncoding uint8

const (
	TextEncodingUTF8 TextEncoding = iota
	TextEncodingUTF16
	TextEncodingUnicode
	TextEncodingBytes
)

// config collects every New/Load construction knob, mirroring the
// teacher's ethconfig-style options structs (§10.3).
type config struct {
	actor          actorid.ActorId
	textEncoding   TextEncoding
	patchesEnabled bool
	logger         log.Logger
}

func defaultConfig() *config {
	return &config{
		actor:        actorid.NewRandom(),
		textEncoding: TextEncodingUTF8,
		logger:       log.Root(),
	}
}

// Option configures a Document at construction (§10.3).
type Option func(*config)

// WithActorID overrides the randomly generated default ActorId.
func WithActorID(id actorid.ActorId) Option {
	return func(c *config) { c.actor = id }
}

// WithTextEncoding records a text width encoding on the Document's
// config (§4.4.3). Defaults to TextEncodingUTF8. No text index is
// converted to or from the recorded encoding.
func WithTextEncoding(enc TextEncoding) Option {
	return func(c *config) { c.textEncoding = enc }
}

// WithPatchesEnabled turns on PatchLog emission for the local Put,
// Insert, Delete, Increment, SpliceText and Mark calls (§4.5); changes
// applied through ApplyChange or sync record no patches. Off by default
// since most embedders that only need get/put don't pay for diff
// bookkeeping they never read.
func WithPatchesEnabled(enabled bool) Option {
	return func(c *config) { c.patchesEnabled = enabled }
}

// WithLogger overrides the default log.Root() logger (§10.1).
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}
