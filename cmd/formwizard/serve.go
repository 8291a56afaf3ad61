package main

import (
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/internal/server"
	"github.com/goliatone/go-formwizard/pkg/optionlists"
	"github.com/goliatone/go-formwizard/pkg/store"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr        string
		dsn         string
		memory      bool
		optionLists string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the forms persistence API",
		Long: `Serve exposes /api/forms backed by SQLite (default), PostgreSQL
(postgres:// DSN) or memory (--memory or an empty DSN). With --option-lists
the lists in that file are served under /api/options for use as external
sources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Server.Addr
			}
			if !cmd.Flags().Changed("dsn") {
				dsn = a.cfg.Store.DSN
			}

			var st store.Store
			if memory || dsn == "" {
				st = store.NewMemoryStore()
				a.logger.Info("serve: using memory store")
			} else {
				sqlStore, err := store.Open(ctx, dsn)
				if err != nil {
					return err
				}
				defer func() {
					_ = sqlStore.Close()
				}()
				st = sqlStore
				a.logger.WithFields(logrus.Fields{"dialect": store.DialectFor(dsn)}).Info("serve: store ready")
			}

			opts := []server.Option{server.WithLogger(a.logger)}
			if optionLists == "" {
				optionLists = a.cfg.Server.OptionListsFile
			}
			if optionLists != "" {
				lists, err := optionlists.LoadFile(optionLists, "", "")
				if err != nil {
					return err
				}
				opts = append(opts, server.WithOptionLists(lists))
			}

			srv := server.New(st, opts...)
			return server.Run(ctx, addr, srv.Handler(), a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (config server.addr when empty)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "store DSN (config store.dsn when empty)")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep forms in memory")
	cmd.Flags().StringVar(&optionLists, "option-lists", "", "YAML file of lists served under /api/options")
	return cmd
}
