/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/kentakayama/its-station/internal/config"
	"github.com/kentakayama/its-station/internal/pki"
	"github.com/kentakayama/its-station/internal/server"
	"github.com/kentakayama/its-station/internal/station"
	"github.com/kentakayama/its-station/internal/transport/g5sim"
)

func newRunCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "run DIR",
		Short: "Obtain credentials if needed and start the messaging loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v.Set("station.dir", args[0])
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err := run(ctx, v, configFile)
			var rejection *pki.RejectionError
			if errors.As(err, &rejection) {
				fmt.Fprintln(cmd.ErrOrStderr(), rejection.Dump)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Configuration file")
	flags.StringP("ea", "e", "", "URL of the Enrollment Authority")
	flags.StringP("aa", "a", "", "URL of the Authorization Authority")
	flags.String("g5-sim", "", `Configuration of G5 simulator "group port ttl interface"`)
	flags.String("status-addr", "", "Serve /status and /metrics on this address")
	flags.String("log-level", "", "Log level")
	if err := bindFlags(v, flags, map[string]string{
		"authority.ea_url":    "ea",
		"authority.aa_url":    "aa",
		"g5sim":               "g5-sim",
		"station.status_addr": "status-addr",
		"log.level":           "log-level",
	}); err != nil {
		panic(err)
	}
	return cmd
}

// bindFlags binds each configuration key to the flag of the given name.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s to %s: %w", name, key, err)
		}
	}
	return nil
}

func run(ctx context.Context, v *viper.Viper, configFile string) error {
	a, err := newApp(ctx, v, configFile)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.logger.Sugar()

	if err := a.identity.Bootstrap(ctx); err != nil {
		log.Errorf("Bootstrap failed: %v", err)
		return err
	}
	ec, at := a.identity.EC(), a.identity.AT()
	log.Infof("ITS-S identity: %s", ec.Identity())
	log.Infof("AT digest: %s", at.Digest)

	simCfg, err := config.ParseG5Sim(a.cfg.G5Sim)
	if err != nil {
		return err
	}
	sim, err := g5sim.Open(ctx, simCfg, a.logger)
	if err != nil {
		return err
	}
	defer sim.Close()

	loop := station.NewLoop(a.identity, a.resolver, sim, station.Config{
		Period:  a.cfg.Station.Period,
		Payload: []byte(a.cfg.Station.Payload),
		Logger:  a.logger,
		Metrics: a.metrics,
	})

	g, ctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Station.StatusAddr; addr != "" {
		srv := server.New(addr, func() server.Status {
			st := server.Status{Peers: loop.Peers(), Certificates: a.resolver.Len()}
			if ec := a.identity.EC(); ec != nil {
				st.Identity = ec.Identity()
			}
			if at := a.identity.AT(); at != nil {
				st.ATDigest = at.Digest.Hex()
			}
			return st
		}, a.metrics.Registry, a.logger)
		g.Go(srv.ListenAndServe)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		return loop.Run(ctx)
	})
	return g.Wait()
}
