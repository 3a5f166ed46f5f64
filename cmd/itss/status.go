/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kentakayama/its-station/internal/cits"
)

const statusHistory = 10

func newStatusCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "status DIR",
		Short: "Show the stored credentials and the credential journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v.Set("station.dir", args[0])
			return status(cmd.Context(), cmd.OutOrStdout(), v, configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "Configuration file")
	return cmd
}

func status(ctx context.Context, w io.Writer, v *viper.Viper, configFile string) error {
	a, err := newApp(ctx, v, configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.identity.Load()
	fmt.Fprintf(w, "Key: %s\n", res.Key)
	fmt.Fprintf(w, "EC:  %s\n", describe(res.EC, a.identity.EC()))
	fmt.Fprintf(w, "AT:  %s\n", describe(res.AT, a.identity.AT()))
	for item, err := range res.Errors {
		fmt.Fprintf(w, "  %s: %v\n", item, err)
	}

	events, err := a.events.ListRecent(ctx, statusHistory)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nRecent exchanges:")
	for _, e := range events {
		fmt.Fprintf(w, "  %s  %-13s %-32s %s\n", e.CreatedAt.Format(time.RFC3339), e.Kind, e.Outcome, hex.EncodeToString(e.Digest))
	}

	count, err := a.peers.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nKnown peer certificates: %d\n", count)
	peers, err := a.peers.ListRecent(ctx, statusHistory)
	if err != nil {
		return err
	}
	for _, p := range peers {
		fmt.Fprintf(w, "  %s  %-6s %s\n", p.FirstSeenAt.Format(time.RFC3339), p.Source, p.Identity)
	}
	return nil
}

func describe(s fmt.Stringer, cert *cits.Certificate) string {
	if cert == nil {
		return s.String()
	}
	from, until := cert.Validity()
	return fmt.Sprintf("%s valid %s .. %s", cert.Identity(), from.Format(time.RFC3339), until.Format(time.RFC3339))
}
