package roomwire

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/roomwire-io/roomwire/internal/roomlist"
)

// RoomsOptions selects how the room list is shown.
type RoomsOptions struct {
	// Watch keeps the list open and re-renders it on every change.
	Watch bool

	SortBy roomlist.SortBy
	Filter string
}

// Rooms prints the room list. With Watch it subscribes to live updates until
// ctx is cancelled.
func (s *Session) Rooms(ctx context.Context, opts RoomsOptions) error {
	if !opts.Watch {
		chats, err := s.api.ListChats(ctx)
		if err != nil {
			return fmt.Errorf("list chats: %w", err)
		}
		s.out.Println(chatTable(roomlist.Filter(chats, opts.SortBy, opts.Filter)))
		return nil
	}

	return s.run(ctx, func(ctx context.Context) error {
		var current atomic.Pointer[roomlist.Model]
		render := func() {
			m := current.Load()
			if m == nil {
				return
			}
			status := "live"
			if !m.Connected() {
				status = "offline"
			}
			s.out.Printf("-- rooms (%s) --\n", status)
			s.out.Println(chatTable(m.Rooms(opts.SortBy, opts.Filter)))
		}

		m, err := roomlist.New(ctx, s.api, s.factory, roomlist.WithOnChange(render))
		if err != nil {
			return err
		}
		defer m.Close()
		current.Store(m)

		s.setReady(m.Connected)
		render()

		<-ctx.Done()
		return nil
	})
}
