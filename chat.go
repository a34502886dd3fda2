package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/baYsed-BuidlAI/luna/internal/transport/ws"
)

func newChatCommand() *cobra.Command {
	var (
		addr     string
		roomID   string
		entityID string
		name     string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running agent over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if entityID == "" {
				entityID = uuid.New().String()
			}
			client, err := dialChat(addr)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Hello(roomID, entityID, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined %s as %s. Type a message, /quit to exit.\n", roomID, name)

			go client.Print(cmd.OutOrStdout())
			return client.Loop(cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:8080/ws", "websocket server address")
	cmd.Flags().StringVar(&roomID, "room", "cli", "room to join")
	cmd.Flags().StringVar(&entityID, "entity", "", "entity id (random when empty)")
	cmd.Flags().StringVar(&name, "name", "You", "display name")
	return cmd
}

type chatClient struct {
	conn *websocket.Conn
	done chan struct{}
}

func dialChat(addr string) (*chatClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &chatClient{conn: conn, done: make(chan struct{})}, nil
}

func (c *chatClient) Close() error {
	close(c.done)
	return c.conn.Close()
}

// Hello binds the connection to a room and waits for hello_ack.
func (c *chatClient) Hello(roomID, entityID, name string) error {
	err := c.conn.WriteJSON(ws.HelloFrame{
		BaseFrame:  ws.BaseFrame{Type: ws.TypeHello, Ts: time.Now().UnixMilli(), RoomID: roomID},
		EntityID:   entityID,
		EntityName: name,
		Source:     "cli",
	})
	if err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	var base ws.BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	switch base.Type {
	case ws.TypeHelloAck:
		return nil
	case ws.TypeError:
		var frame ws.ErrorFrame
		_ = json.Unmarshal(data, &frame)
		return fmt.Errorf("hello failed: %s - %s", frame.Code, frame.Message)
	default:
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}
}

// Loop sends every non-empty input line as a message frame.
func (c *chatClient) Loop(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" {
			return nil
		}
		err := c.conn.WriteJSON(ws.MessageFrame{
			BaseFrame: ws.BaseFrame{Type: ws.TypeMessage, Ts: time.Now().UnixMilli(), RequestID: uuid.New().String()},
			Text:      text,
		})
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return scanner.Err()
}

// Print writes agent replies and errors until the connection closes.
func (c *chatClient) Print(out io.Writer) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					fmt.Fprintf(os.Stderr, "read error: %v\n", err)
				}
			}
			return
		}
		if line := formatFrame(data); line != "" {
			fmt.Fprintln(out, line)
		}
	}
}

func formatFrame(data []byte) string {
	var base ws.BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		return ""
	}
	switch base.Type {
	case ws.TypeReply:
		var frame ws.ReplyFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return ""
		}
		if len(frame.Actions) > 0 {
			return fmt.Sprintf("agent: %s (actions: %s)", frame.Text, strings.Join(frame.Actions, ", "))
		}
		return "agent: " + frame.Text
	case ws.TypeError:
		var frame ws.ErrorFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return ""
		}
		return fmt.Sprintf("error: %s - %s", frame.Code, frame.Message)
	}
	return ""
}
