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

// Command automerge inspects, converts and simulates sync rounds over
// document files produced by the automerge package (§6, §10.3 CLI).
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var logger *zap.SugaredLogger

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "automerge",
		Short:         "Inspect, convert and sync-simulate automerge document files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInspectCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newSyncSimCmd())
	return root
}

func main() {
	z, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "automerge: building logger:", err)
		os.Exit(1)
	}
	defer z.Sync()
	logger = z.Sugar()

	if err := newRootCmd().Execute(); err != nil {
		logger.Errorw("command failed", "err", err)
		os.Exit(1)
	}
}
