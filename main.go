// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"goquake2/commandline"
	"goquake2/host"
)

type rootOptions struct {
	host.Options
	dedicated *commandline.BoolInt
	verbose   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{
		dedicated: commandline.NewBoolInt(0),
	}

	cmd := &cobra.Command{
		Use:   "goquake2 [flags] [+command args]...",
		Short: "Quake 2 compatible client and server",
		Long: `Runs a client with a listen server, or a dedicated server.

Arguments starting with '+' are console commands. "+set" commands run
before the config files, all others after them.

Example:
  goquake2 +map sandbox
  goquake2 --dedicated=8 +set hostname "frag central" +map sandbox
  goquake2 --connect 10.0.0.1`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}
	// everything behind the first +command belongs to the console
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().StringVar(&opts.BaseDir, "basedir", ".", "directory holding the game directories")
	cmd.Flags().StringVar(&opts.Game, "game", "", "game directory used on top of baseq2")
	cmd.Flags().Var(opts.dedicated, "dedicated", "run as dedicated server, optional number of clients")
	cmd.Flags().Lookup("dedicated").NoOptDefVal = "true"
	cmd.Flags().IntVar(&opts.Port, "port", 0, "UDP port of the server, a listen server only accepts remote clients with a port")
	cmd.Flags().StringVar(&opts.Profile, "config", "", "YAML server profile")
	cmd.Flags().StringVar(&opts.Connect, "connect", "", "server to connect to")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")
	return cmd
}

func run(ctx context.Context, opts *rootOptions, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if opts.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	opts.Dedicated = opts.dedicated.IsSet()
	opts.MaxClients = opts.dedicated.Num()
	opts.Args = args

	h, err := host.Init(opts.Options)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return h.Run(ctx)
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("goquake2")
		os.Exit(1)
	}
}
