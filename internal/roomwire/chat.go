package roomwire

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/roomwire-io/roomwire/internal/chatroom"
)

const chatHelp = `commands:
  /suggest <text>  ask the server to complete <text>
  /users           list online users
  /reconnect       drop and re-open the room connection
  /quit            leave the room`

// Chat joins room id and relays stdin lines to it until /quit, end of input
// or ctx cancellation.
func (s *Session) Chat(ctx context.Context, id int64) error {
	me, err := s.Login(ctx)
	if err != nil {
		return err
	}

	detail, err := s.api.GetChat(ctx, id)
	if err != nil {
		return fmt.Errorf("load chat %d: %w", id, err)
	}

	return s.run(ctx, func(ctx context.Context) error {
		room, err := chatroom.New(id, me.Username, s.factory,
			chatroom.WithTranscript(s.store, s.cfg.StoreOptions.History),
			chatroom.WithBacklog(detail.Messages),
			chatroom.WithHooks(chatroom.Hooks{
				OnLine:       s.printLine,
				OnUsers:      s.printUsers,
				OnSuggestion: s.printSuggestion,
				OnStatus:     s.printStatus,
			}),
		)
		if err != nil {
			return err
		}
		defer room.Close()

		s.setReady(room.Connected)

		s.out.Printf("== %s (#%d) ==\n", detail.Name, detail.ID)
		for _, l := range room.Lines() {
			s.printLine(l)
		}

		return s.chatLoop(ctx, room)
	})
}

func (s *Session) chatLoop(ctx context.Context, room *chatroom.Model) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := s.handleInput(room, line); quit {
				return nil
			}
		}
	}
}

// handleInput runs one line of user input and reports whether to leave.
func (s *Session) handleInput(room *chatroom.Model, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

	switch cmd {
	case "/quit":
		return true

	case "/help":
		s.out.Println(chatHelp)

	case "/users":
		s.printUsers(room.Users())

	case "/reconnect":
		s.out.Println("* reconnecting")
		room.Reconnect()

	case "/suggest":
		if err := room.RequestSuggestion(arg); err != nil {
			s.out.Printf("! suggestion not sent: %v\n", err)
		}

	default:
		if err := room.Send(line); err != nil {
			s.out.Printf("! message not sent: %v\n", err)
		}
	}
	return false
}

func (s *Session) printLine(l chatroom.Line) {
	ts := l.At.Local().Format("15:04")
	switch {
	case l.System:
		s.out.Printf("[%s] * %s\n", ts, l.Body)
	case l.Own:
		s.out.Printf("[%s] %s (you): %s\n", ts, l.Sender, l.Body)
	default:
		s.out.Printf("[%s] %s\n", ts, l)
	}
}

func (s *Session) printUsers(users []string) {
	s.out.Printf("* online: %s\n", strings.Join(users, ", "))
}

func (s *Session) printSuggestion(text, errText string) {
	if errText != "" {
		s.out.Printf("! no suggestion: %s\n", errText)
		return
	}
	s.out.Printf("* suggestion: %s\n", text)
}

func (s *Session) printStatus(connected bool) {
	if connected {
		s.out.Println("* connected")
		return
	}
	s.out.Println("* disconnected")
}

