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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/erigontech/automerge"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the heads, actor table and change count of a document file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
	return cmd
}

func runInspect(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read document file")
	}
	doc, err := automerge.Load(buf)
	if err != nil {
		return errors.Wrap(err, "load document")
	}
	changes := doc.GetChanges()
	heads := doc.GetHeads()
	logger.Infow("inspected document", "path", path, "changes", len(changes), "heads", len(heads))

	fmt.Printf("changes: %d\n", len(changes))
	fmt.Printf("heads:\n")
	for _, h := range heads {
		fmt.Printf("  %x\n", h)
	}
	actors := map[string]int{}
	for _, c := range changes {
		actors[c.Actor.String()]++
	}
	fmt.Printf("actors: %d\n", len(actors))
	for a, n := range actors {
		fmt.Printf("  %s: %d changes\n", a, n)
	}
	return nil
}
