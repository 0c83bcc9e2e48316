package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roomwire-io/roomwire/cmd/roomwire/app/options"
	"github.com/roomwire-io/roomwire/internal/mockserver"
	"github.com/roomwire-io/roomwire/internal/pkg/server"
	"github.com/roomwire-io/roomwire/internal/roomlist"
	"github.com/roomwire-io/roomwire/internal/roomwire"
	"github.com/roomwire-io/roomwire/pkg/log"
)

func newRoomsCommand(ctx context.Context, opts *options.RoomwireOptions) *cobra.Command {
	var (
		ro     roomwire.RoomsOptions
		sortBy string
	)

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List chat rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := roomlist.ParseSortBy(sortBy)
			if err != nil {
				return err
			}
			ro.SortBy = by

			return withSession(cmd, opts, func(s *roomwire.Session) error {
				return s.Rooms(ctx, ro)
			})
		},
	}

	cmd.Flags().BoolVarP(&ro.Watch, "watch", "w", false, "Keep the list open and follow live updates.")
	cmd.Flags().StringVar(&sortBy, "sort", string(roomlist.SortRecent), "Sort order: recent, members or name.")
	cmd.Flags().StringVar(&ro.Filter, "filter", "", "Only show rooms whose name contains this text.")
	return cmd
}

func newChatCommand(ctx context.Context, opts *options.RoomwireOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <chat-id>",
		Short: "Join a chat room",
		Long: `Join a chat room. Lines typed on stdin are sent to the room.

  /suggest <text>  ask the server to complete <text>
  /users           list online users
  /reconnect       drop and re-open the room connection
  /quit            leave the room`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, opts, func(s *roomwire.Session) error {
				return s.Chat(ctx, id)
			})
		},
	}
}

func newRegisterCommand(ctx context.Context, opts *options.RoomwireOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create the account given by --api.username and --api.password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *roomwire.Session) error {
				return s.Register(ctx)
			})
		},
	}
}

func newCreateCommand(ctx context.Context, opts *options.RoomwireOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a chat room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *roomwire.Session) error {
				return s.CreateChat(ctx, name)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the new room.")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSearchCommand(ctx context.Context, opts *options.RoomwireOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find chat rooms by name prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *roomwire.Session) error {
				return s.SearchChats(ctx, name)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name prefix, matched case-insensitively.")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDeleteCommand(ctx context.Context, opts *options.RoomwireOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a chat room you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, opts, func(s *roomwire.Session) error {
				return s.DeleteChat(ctx, id)
			})
		},
	}
}

func newMockServerCommand(ctx context.Context) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory chat backend for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info("Mock chat backend ready", "api", "http://"+addr+"/api/v1", "ws", "ws://"+addr+"/ws")
			return server.New("mock-server", addr,
				server.WithHandler("/", mockserver.New(log.WithName("mockserver"))),
			).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Address to serve the mock backend on.")
	return cmd
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid chat id %q", s)
	}
	return id, nil
}
