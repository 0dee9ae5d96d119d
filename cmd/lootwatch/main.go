package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/lootsync/internal/syncclient"
	"github.com/park285/lootsync/pkg/lootdto"
)

// lootwatch follows a running lootsync server and prints every frame.
func main() {
	_ = godotenv.Load()

	wsURL := os.Getenv("LOOTSYNC_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}
	attempts := 5
	if v, err := strconv.Atoi(os.Getenv("LOOTWATCH_RECONNECTS")); err == nil && v >= 0 {
		attempts = v
	}

	ws := syncclient.NewWebSocket(wsURL, attempts, time.Second)
	ws.OnStateChange(func(state syncclient.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *syncclient.Message) {
		switch msg.Type {
		case lootdto.TypeLootListUpdate:
			fmt.Printf("list: %d items\n", len(msg.Items))
			for i, it := range msg.Items {
				fmt.Printf("  [%d] %-30s id=%-6d looter=%s recipient=%q distributed=%t\n",
					i, it.ItemName, it.ItemID, it.Looter, it.Recipient, it.Distributed)
			}
		case lootdto.TypeItemUpdate:
			idx := -1
			if msg.Index != nil {
				idx = *msg.Index
			}
			name := "?"
			if msg.Item != nil {
				name = msg.Item.ItemName
			}
			fmt.Printf("update: [%d] %s recipient=%q distributed=%t\n", idx, name, msg.Recipient, msg.Distributed)
		default:
			fmt.Printf("unknown frame type=%q\n", msg.Type)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := ws.Connect(cctx)
	cancel()
	if err != nil && attempts == 0 {
		log.Fatalf("WS connect error: %v", err)
	}
	if err != nil {
		log.Printf("WS connect error: %v (retrying)", err)
	}

	<-ctx.Done()

	closeCtx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ccancel()
	_ = ws.Close(closeCtx)
}
