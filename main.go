package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"animehub/app/config"
	"animehub/app/logger"
	"animehub/app/seed"
	"animehub/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const cliVersion = "1.0.0"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Config     *config.Config
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCommand creates the animehub command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "animehub",
		Short:         "AnimeHub - share anime pictures",
		Long:          "A small social feed for anime images with likes, comments and captions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.Config = cfg
			return logger.Initialize(cfg.LogLevel, cfg.LogFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			_ = logger.Close()
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newDBCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.Config.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := service.RunAppServer(ctx, opts.Config); err != nil {
				logger.Log.Error("Server failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newSeedCommand(opts *RootOptions) *cobra.Command {
	seedOpts := seed.Options{}
	var randomSeed uint64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the configured store with fake users and posts",
		Long: `Create fake accounts and posts with likes and comments.

Every seeded account uses the password "` + seed.DefaultPassword + `".

Example:
  animehub seed --users 20 --posts 100
  animehub seed --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := service.RunSeed(cmd.Context(), opts.Config, seedOpts, randomSeed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d posts, %d likes, %d comments\n",
				len(res.Users), len(res.Posts), res.Likes, res.Comments)
			return nil
		},
	}
	cmd.Flags().IntVar(&seedOpts.Users, "users", 10, "number of accounts to create")
	cmd.Flags().IntVar(&seedOpts.Posts, "posts", 30, "number of posts to create")
	cmd.Flags().Uint64Var(&randomSeed, "seed", 0, "random seed for reproducible data (0 = random)")
	return cmd
}

func newDBCommand(opts *RootOptions) *cobra.Command {
	var force bool
	maintenance := func(cmd *cobra.Command) (*service.DBMaintenance, error) {
		if opts.Config.Store != config.StoreBadger {
			return nil, fmt.Errorf("db commands need the badger store, configured store is %q", opts.Config.Store)
		}
		d := service.NewDBMaintenance(opts.Config.BadgerPath, cmd.InOrStdin(), cmd.OutOrStdout())
		d.Force = force
		return d, nil
	}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain the embedded badger store",
	}
	cmd.PersistentFlags().BoolVarP(&force, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize a new empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := maintenance(cmd)
			if err != nil {
				return err
			}
			return d.Init()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Delete the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := maintenance(cmd)
			if err != nil {
				return err
			}
			return cancelled(cmd, d.Clean())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := maintenance(cmd)
			if err != nil {
				return err
			}
			_, err = d.Backup()
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the database from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := maintenance(cmd)
			if err != nil {
				return err
			}
			return cancelled(cmd, d.Restore(args[0]))
		},
	})
	return cmd
}

// cancelled reports a declined confirmation without failing the command.
func cancelled(cmd *cobra.Command, err error) error {
	if errors.Is(err, service.ErrCancelled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
		return nil
	}
	return err
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "animehub version %s\n", cliVersion)
		},
	}
}
