/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Command itss runs an ITS station: it obtains an Enrollment Credential and
// an Authorization Ticket, then broadcasts and verifies signed messages over
// a multicast simulator of the ITS-G5 channel.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "itss",
		Short: "ITS station credential lifecycle and secure messaging",
		Long: `itss manages the key, Enrollment Credential and Authorization Ticket of an
ITS station stored in a directory, and exchanges signed messages with other
stations over a UDP IPv4 multicast simulator of the ITS-G5 network.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newStatusCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
