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

package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/erigontech/automerge"
)

func newConvertCmd() *cobra.Command {
	var compressionFlag string
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-save a document file under a different compression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			compression, err := parseCompression(compressionFlag)
			if err != nil {
				return err
			}
			return runConvert(args[0], args[1], compression)
		},
	}
	cmd.Flags().StringVar(&compressionFlag, "compression", "none", "one of: none, deflate, snappy")
	return cmd
}

func parseCompression(s string) (automerge.Compression, error) {
	switch s {
	case "none":
		return automerge.CompressionNone, nil
	case "deflate":
		return automerge.CompressionDeflate, nil
	case "snappy":
		return automerge.CompressionSnappy, nil
	default:
		return 0, errors.Errorf("unknown compression %q (want none, deflate or snappy)", s)
	}
}

func runConvert(inPath, outPath string, compression automerge.Compression) error {
	buf, err := os.ReadFile(inPath)
	if err != nil {
		return errors.Wrap(err, "read input document")
	}
	doc, err := automerge.Load(buf)
	if err != nil {
		return errors.Wrap(err, "load input document")
	}
	out, err := doc.Save(compression)
	if err != nil {
		return errors.Wrap(err, "save document")
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return errors.Wrap(err, "write output document")
	}
	logger.Infow("converted document", "in", inPath, "out", outPath, "bytesIn", len(buf), "bytesOut", len(out))
	return nil
}
