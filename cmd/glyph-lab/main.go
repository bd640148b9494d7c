// Package main runs a small lab server that presents one payload as a
// cycling sequence of scannable frame strings, for testing receivers
// against a real screen.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glyphapp/glyph-node/pkg/protocol"
	"github.com/glyphapp/glyph-node/pkg/session"
	"github.com/glyphapp/glyph-node/pkg/transfer"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port")
	message := flag.String("message", "Hello from the glyph lab", "Message text to present")
	sender := flag.String("sender", "", "Sender handle shown to the receiver")
	capacity := flag.Int("capacity", transfer.DefaultCapacity, "Fragment capacity in bytes")
	cadence := flag.Duration("cadence", 250*time.Millisecond, "Frame cycling cadence")
	erasure := flag.Bool("erasure", false, "Add redundancy-coded parity frames")
	expiry := flag.Uint("expiry", 0, "Self-destruct seconds after open (0 = read-once)")

	flag.Parse()

	fmt.Println("🔦 Glyph Lab Server")
	fmt.Println("===================")
	fmt.Println()

	payload := &protocol.LogicalPayload{
		Text:      *message,
		CreatedAt: protocol.NowUnixMilli(),
		Expiry:    protocol.ReadOnce(),
	}
	if *expiry > 0 {
		payload.Expiry = protocol.CountdownSeconds(uint32(*expiry))
	}
	if *sender != "" {
		payload.Sender = &protocol.Attribution{Name: *sender, Handle: *sender}
	}

	presenter, err := session.NewPresenter(payload.Encode(), *capacity, protocol.KindDirect, 0, *erasure)
	if err != nil {
		log.Fatalf("Failed to prepare transfer: %v", err)
	}

	fmt.Printf("📦 Message: %q\n", *message)
	fmt.Printf("🧩 Frames: %d (capacity %d bytes, erasure=%v)\n", presenter.FrameCount(), *capacity, *erasure)
	fmt.Printf("🔁 Cadence: %s\n", *cadence)
	fmt.Printf("🆔 Transfer: %x\n", presenter.TransferID())
	fmt.Println()

	config := &Config{
		Port:       *port,
		Cadence:    *cadence,
		EnableCORS: true,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewServer(presenter, config).Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
