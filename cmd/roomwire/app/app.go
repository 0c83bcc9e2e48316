package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/component-base/cli/globalflag"

	"github.com/roomwire-io/roomwire/cmd/roomwire/app/options"
	"github.com/roomwire-io/roomwire/internal/roomwire"
	"github.com/roomwire-io/roomwire/pkg/log"
)

const (
	commandName = "roomwire"
	commandDesc = `roomwire is a terminal client for roomwire chat servers.

It lists rooms live, joins a room to chat, and keeps every socket connected
through server restarts with capped exponential backoff.

Every flag can also be set in the --config file or through a ROOMWIRE_
environment variable, e.g. --api.password as ROOMWIRE_API_PASSWORD.`

	envPrefix = "ROOMWIRE"
)

// NewRoomwireCommand returns the root command.
func NewRoomwireCommand(ctx context.Context) *cobra.Command {
	opts := options.NewRoomwireOptions()
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Chat from the terminal",
		Long:         commandDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, cmd, cfgFile, opts)
		},
	}

	fs := cmd.PersistentFlags()
	namedfs := opts.Flags()
	globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
	for _, f := range namedfs.FlagSets {
		fs.AddFlagSet(f)
	}
	fs.StringVarP(&cfgFile, "config", "c", "", "Path to a YAML, JSON or TOML config file. It is watched for log level changes.")

	cmd.AddCommand(
		newRoomsCommand(ctx, opts),
		newChatCommand(ctx, opts),
		newRegisterCommand(ctx, opts),
		newCreateCommand(ctx, opts),
		newSearchCommand(ctx, opts),
		newDeleteCommand(ctx, opts),
		newMockServerCommand(ctx),
	)

	return cmd
}

// loadConfig layers flags over environment variables over the config file,
// then completes, validates and applies the options.
func loadConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string, opts *options.RoomwireOptions) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := opts.Complete(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	log.Init(opts.Log)

	if cfgFile != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			lvl := v.GetString("log.level")
			if err := log.SetLevel(lvl); err != nil {
				log.Error(err, "Ignoring invalid log level from config", "file", e.Name)
				return
			}
			log.Info("Log level changed", "level", lvl, "file", e.Name)
		})
		v.WatchConfig()
	}
	return nil
}

// withSession builds a session for one command invocation.
func withSession(cmd *cobra.Command, opts *options.RoomwireOptions, fn func(s *roomwire.Session) error) error {
	cfg, err := opts.Config(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	s, err := cfg.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Error(err, "Failed to close session")
		}
	}()

	return fn(s)
}
