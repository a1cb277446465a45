// client/main.go
//
// 演示客户端。两种模式:
//
//	-mode local   本地人机对战，落子由内置 AI 即时回应
//	-mode online  连接服务器，只渲染服务器广播的权威状态
//
// 在线模式下客户端自己不推演棋局：所有输入只是"请求"，
// 屏幕上的棋盘永远来自最近一次 sync_state。
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neuralttt/gameserver/game"
	"github.com/neuralttt/gameserver/models"
	"github.com/neuralttt/gameserver/network"
)

func main() {
	mode := flag.String("mode", "local", "local or online")
	addr := flag.String("addr", "localhost:5000", "server address (online mode)")
	token := flag.String("token", "", "access token (online mode)")
	roomCode := flag.String("room", "demo", "room code (online mode)")
	gridSize := flag.Int("grid", 3, "board size")
	difficulty := flag.String("difficulty", "expert", "easy, medium or expert (local mode)")
	flag.Parse()

	switch *mode {
	case "local":
		runLocal(*gridSize, *difficulty)
	case "online":
		runOnline(*addr, *token, *roomCode, *gridSize)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func printBoard(board []string, n int) {
	for row := 0; row < n; row++ {
		cells := make([]string, n)
		for col := 0; col < n; col++ {
			cell := board[row*n+col]
			if cell == "" {
				cell = strconv.Itoa(row*n + col)
			}
			cells[col] = cell
		}
		fmt.Println(" " + strings.Join(cells, " | "))
	}
	fmt.Println()
}

// --- 本地人机模式 ---

func aiMove(board []string, n int, difficulty string, rng *rand.Rand) int {
	switch difficulty {
	case "easy":
		return game.EasyMove(board, rng)
	case "medium":
		return game.HeuristicMove(board, n, game.O, game.X, 0.1, rng)
	default:
		return game.ExpertMove(board, n, game.O, game.X)
	}
}

func runLocal(n int, difficulty string) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	board := make([]string, n*n)
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("You are X. Enter a cell index (0-%d).\n\n", n*n-1)
	printBoard(board, n)

	for {
		fmt.Print("> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		index, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || index < 0 || index >= n*n || board[index] != game.Empty {
			fmt.Println("invalid move")
			continue
		}
		board[index] = game.X

		if result := game.Evaluate(board, n); result.Winner != "" {
			printBoard(board, n)
			fmt.Printf("Game over: %s\n", result.Winner)
			return
		}

		reply := aiMove(board, n, difficulty, rng)
		if reply >= 0 {
			board[reply] = game.O
		}
		printBoard(board, n)

		if result := game.Evaluate(board, n); result.Winner != "" {
			fmt.Printf("Game over: %s\n", result.Winner)
			return
		}
	}
}

// --- 在线模式 ---

func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, network.EncodeFrame(msgID, data))
}

func runOnline(addr, token, roomCode string, gridSize int) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// 读循环：只认比上一次更新的 revision，乱序到达的旧状态丢弃
	go func() {
		defer close(done)
		var lastRevision int64
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodeFrame(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}

			switch packet.MsgID {
			case network.MsgTypeSyncState:
				var st models.SyncState
				if err := packet.Unmarshal(&st); err != nil {
					continue
				}
				if st.Revision <= lastRevision {
					continue
				}
				lastRevision = st.Revision
				n := 3
				for n*n < len(st.Board) {
					n++
				}
				fmt.Println()
				printBoard(st.Board, n)
				if st.Winner != "" {
					fmt.Printf("Game over: %s\n", st.Winner)
				} else {
					fmt.Printf("%s to move\n", st.CurrentPlayer)
				}
			case network.MsgTypeRoomStatus:
				var status models.RoomStatus
				if err := packet.Unmarshal(&status); err != nil {
					continue
				}
				fmt.Printf("[room] %s (%d online)\n", status.Message, status.Count)
			case network.MsgTypeOpponentLeftWin:
				var notice models.ForfeitNotice
				if err := packet.Unmarshal(&notice); err != nil {
					continue
				}
				fmt.Printf("[room] %s\n", notice.Message)
			case network.MsgTypeRoomMessageRecv, network.MsgTypeGlobalMessageRecv:
				var msg models.ChatMessage
				if err := packet.Unmarshal(&msg); err != nil {
					continue
				}
				fmt.Printf("[chat %s] %s: %s\n", msg.Time, msg.Username, msg.Text)
			case network.MsgTypeError:
				var notice models.ErrorNotice
				if err := packet.Unmarshal(&notice); err != nil {
					continue
				}
				fmt.Printf("[rejected] %s\n", notice.Message)
			default:
				log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
			}
		}
	}()

	if err := send(c, network.MsgTypeJoinRoom, models.JoinRoomRequest{Room: roomCode, GridSize: gridSize}); err != nil {
		log.Fatalf("join failed: %v", err)
	}

	fmt.Println("Commands: <index> to move, undo, redo, reset, say <text>, quit")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		default:
		}

		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)

		var sendErr error
		switch {
		case text == "quit":
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text == "undo":
			sendErr = send(c, network.MsgTypeRequestUndo, models.RoomRequest{Room: roomCode})
		case text == "redo":
			sendErr = send(c, network.MsgTypeRequestRedo, models.RoomRequest{Room: roomCode})
		case text == "reset":
			sendErr = send(c, network.MsgTypeResetGame, models.RoomRequest{Room: roomCode})
		case strings.HasPrefix(text, "say "):
			sendErr = send(c, network.MsgTypeRoomMessage,
				models.RoomChatRequest{Room: roomCode, Text: strings.TrimPrefix(text, "say ")})
		default:
			index, err := strconv.Atoi(text)
			if err != nil {
				fmt.Println("unknown command")
				continue
			}
			sendErr = send(c, network.MsgTypeSendMove, models.MoveRequest{Room: roomCode, Index: index})
		}
		if sendErr != nil {
			log.Println("Write error:", sendErr)
			return
		}
	}
}
