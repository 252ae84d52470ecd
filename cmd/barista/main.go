// Command barista runs the terminal voice ordering client against a barista
// agent backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	conversation "github.com/baristalabs/barista-core/core"
	"github.com/baristalabs/barista-core/core/audio/miniaudio"
	"github.com/baristalabs/barista-core/core/audio/portaudio"
	"github.com/baristalabs/barista-core/core/order"
	"github.com/baristalabs/barista-core/core/playback"
	"github.com/baristalabs/barista-core/core/transport"
	"github.com/baristalabs/barista-core/internal/tui"
)

const defaultServerAddr = "http://localhost:5000"

// audioDevice is what both device backends provide: microphone capture for
// the controller and buffered playback output for the player.
type audioDevice interface {
	conversation.CaptureDevice
	playback.Output
	Close()
}

func main() {
	serverAddr := flag.String("addr", envOr("BARISTA_SERVER_ADDR", defaultServerAddr), "barista agent base URL")
	audioBackend := flag.String("audio", "miniaudio", "audio device backend (miniaudio or portaudio)")
	printContract := flag.Bool("contract", false, "print the order state wire schema and exit")
	flag.Parse()

	if *printContract {
		schema, err := json.MarshalIndent(order.WireSchema(), "", "  ")
		if err != nil {
			log.Fatalf("failed to render wire schema: %v", err)
		}
		fmt.Println(string(schema))
		return
	}

	device, err := newAudioDevice(*audioBackend)
	if err != nil {
		log.Fatalf("failed to open audio device: %v", err)
	}
	defer device.Close()

	client := transport.NewClient(*serverAddr)
	player := playback.NewPlayer(device, client)
	controller := conversation.NewController(
		conversation.WithTransport(client),
		conversation.WithCaptureDevice(device),
		conversation.WithPlayer(player),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model := tui.NewModel(controller)
	controller.Converse(ctx, model.ConverseOptions()...)

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		log.Fatalf("terminal surface failed: %v", err)
	}
}

func newAudioDevice(backend string) (audioDevice, error) {
	switch backend {
	case "miniaudio":
		return miniaudio.NewClient()
	case "portaudio":
		return portaudio.NewClient(480)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
