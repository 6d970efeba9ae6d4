// Command cockroachctl is a small operator CLI against a running cockroachd
// instance. It speaks the same HTTP control plane and WebSocket feed as game
// clients.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "Base URL of the cockroachd server")
	token     = flag.String("token", "", "Access token (falls back to COCKROACH_TOKEN)")
	timeout   = flag.Duration("timeout", 10*time.Second, "Request timeout")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [global flags] <command> [args]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  rooms                          List open rooms (JSON)")
		fmt.Fprintln(os.Stderr, "  create [--turn-limit N]        Create a room; prints room ID")
		fmt.Fprintln(os.Stderr, "  join --room ID                 Join a room")
		fmt.Fprintln(os.Stderr, "  start --room ID                Start a room's game")
		fmt.Fprintln(os.Stderr, "  leave --room ID                Leave a waiting room")
		fmt.Fprintln(os.Stderr, "  state --room ID                Print the room state (JSON)")
		fmt.Fprintln(os.Stderr, "  watch                          Stream server frames (JSON lines)")
		fmt.Fprintln(os.Stderr, "\nGlobal flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *token == "" {
		*token = os.Getenv("COCKROACH_TOKEN")
	}
	if *token == "" {
		fatal("an access token is required (--token or COCKROACH_TOKEN)")
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cli := &ctl{
		base:  strings.TrimRight(*serverURL, "/"),
		token: *token,
		http:  &http.Client{Timeout: *timeout},
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "rooms":
		err = cli.rooms()
	case "create":
		err = cli.create(rest)
	case "join":
		err = cli.roomAction(rest, "join")
	case "start":
		err = cli.roomAction(rest, "start")
	case "leave":
		err = cli.roomAction(rest, "leave")
	case "state":
		err = cli.state(rest)
	case "watch":
		err = cli.watch()
	default:
		fatal("unknown command %q", cmd)
	}
	if err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type ctl struct {
	base  string
	token string
	http  *http.Client
}

// request issues one authenticated call and decodes the JSON reply. Non-2xx
// replies surface the server's error envelope verbatim.
func (c *ctl) request(method, path string, body io.Reader) (map[string]interface{}, error) {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding %s %s reply: %v", method, path, err)
	}
	if resp.StatusCode >= 300 {
		raw, _ := json.Marshal(decoded)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, raw)
	}
	return decoded, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *ctl) rooms() error {
	out, err := c.request(http.MethodGet, "/rooms", nil)
	if err != nil {
		return err
	}
	return printJSON(out["rooms"])
}

func (c *ctl) create(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	turnLimit := fs.Int("turn-limit", 60, "Turn time limit in seconds")
	fs.Parse(args)

	body := strings.NewReader(fmt.Sprintf(`{"turn_time_limit_seconds": %d}`, *turnLimit))
	out, err := c.request(http.MethodPost, "/rooms", body)
	if err != nil {
		return err
	}
	fmt.Println(out["room_id"])
	return nil
}

// roomFlag parses the shared --room flag for room-scoped commands.
func roomFlag(name string, args []string) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	room := fs.String("room", "", "Room ID")
	fs.Parse(args)
	if *room == "" {
		fatal("%s requires --room", name)
	}
	return *room
}

func (c *ctl) roomAction(args []string, action string) error {
	room := roomFlag(action, args)
	out, err := c.request(http.MethodPost, "/rooms/"+room+"/"+action, nil)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func (c *ctl) state(args []string) error {
	room := roomFlag("state", args)
	out, err := c.request(http.MethodGet, "/rooms/"+room, nil)
	if err != nil {
		return err
	}
	return printJSON(out)
}

// watch authenticates over the WebSocket feed and prints every frame as one
// JSON line until interrupted.
func (c *ctl) watch() error {
	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %v", wsURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{
		"event":        "authenticate",
		"access_token": c.token,
		"device_info":  "cockroachctl",
	}); err != nil {
		return err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
}
