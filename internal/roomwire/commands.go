package roomwire

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Register creates the configured account.
func (s *Session) Register(ctx context.Context) error {
	o := s.cfg.APIOptions
	if o.Username == "" || o.Password == "" {
		return ErrNoCredentials
	}

	if err := s.api.Register(ctx, o.Username, o.Password); err != nil {
		return fmt.Errorf("register %q: %w", o.Username, err)
	}
	s.out.Printf("registered %s\n", o.Username)
	return nil
}

// CreateChat creates a room owned by the logged-in user.
func (s *Session) CreateChat(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("chat name is required")
	}

	me, err := s.Login(ctx)
	if err != nil {
		return err
	}

	chat, err := s.api.CreateChat(ctx, name, me.ID)
	if err != nil {
		return fmt.Errorf("create chat %q: %w", name, err)
	}
	s.out.Printf("created chat %d %s\n", chat.ID, chat.Name)
	return nil
}

// DeleteChat deletes a room owned by the logged-in user.
func (s *Session) DeleteChat(ctx context.Context, id int64) error {
	if _, err := s.Login(ctx); err != nil {
		return err
	}

	if err := s.api.DeleteChat(ctx, id); err != nil {
		return fmt.Errorf("delete chat %d: %w", id, err)
	}
	s.out.Printf("deleted chat %d\n", id)
	return nil
}

// SearchChats prints the rooms whose name starts with name.
func (s *Session) SearchChats(ctx context.Context, name string) error {
	chats, err := s.api.SearchChats(ctx, name)
	if err != nil {
		return fmt.Errorf("search chats: %w", err)
	}
	s.out.Println(chatTable(chats))
	return nil
}
