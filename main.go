package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

const (
	// Since terminal characters are taller than wide, scale the width
	// more to keep an approximate aspect ratio.
	scaleX = 2
	scaleY = 1

	// The DMG runs at ~59.7 FPS.
	frameTime = time.Second / 60
)

// Characters to represent the four shades, lightest to darkest.
var shadeChars = []rune{' ', '░', '▒', '█'}

// keyBindings maps host keys to joypad keys.
var keyBindings = map[tcell.Key]memory.JoypadKey{
	tcell.KeyUp:        memory.JoypadUp,
	tcell.KeyDown:      memory.JoypadDown,
	tcell.KeyLeft:      memory.JoypadLeft,
	tcell.KeyRight:     memory.JoypadRight,
	tcell.KeyEnter:     memory.JoypadStart,
	tcell.KeyBackspace: memory.JoypadSelect,
}

var runeBindings = map[rune]memory.JoypadKey{
	'z': memory.JoypadA,
	'x': memory.JoypadB,
}

type keyEvent struct {
	key     memory.JoypadKey
	pressed bool
}

type TerminalRenderer struct {
	screen  tcell.Screen
	machine *dmg.Machine
	keys    chan keyEvent
	running bool
}

func NewTerminalRenderer(m *dmg.Machine) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	return &TerminalRenderer{
		screen:  screen,
		machine: m,
		keys:    make(chan keyEvent, 16),
		running: true,
	}, nil
}

func (t *TerminalRenderer) Run() error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	t.screen.Clear()

	// Input events are polled on their own goroutine but applied to
	// the joypad between frames, on the emulation loop: the core is
	// strictly single-threaded.
	go t.pollInput()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for t.running {
		select {
		case ev := <-t.keys:
			if ev.pressed {
				t.machine.HandleKeyPress(ev.key)
			} else {
				t.machine.HandleKeyRelease(ev.key)
			}
		case <-ticker.C:
			t.machine.RunFrame()
			t.render()
			t.screen.Show()
		case <-signals:
			t.running = false
			slog.Info("Received signal to stop")
			return nil
		}
	}

	return nil
}

func (t *TerminalRenderer) pollInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape {
				t.running = false
				return
			}
			// tcell reports no key-up events, so treat every event
			// as a tap: press, then release.
			if key, ok := keyBindings[ev.Key()]; ok {
				t.keys <- keyEvent{key, true}
				t.keys <- keyEvent{key, false}
			} else if key, ok := runeBindings[ev.Rune()]; ok {
				t.keys <- keyEvent{key, true}
				t.keys <- keyEvent{key, false}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *TerminalRenderer) render() {
	fb := t.machine.CurrentFrame()

	t.screen.Clear()
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			char := shadeChars[fb.GetPixel(x, y)]
			for sx := 0; sx < scaleX; sx++ {
				t.screen.SetContent(x*scaleX+sx, y*scaleY, char, nil, style)
			}
		}
	}
}

func main() {
	app := cli.NewApp()
	app.Name = "dmg"
	app.Description = "A DMG emulator for the terminal"
	app.Usage = "dmg [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	machine, err := dmg.NewWithFile(romPath)
	if err != nil {
		return err
	}

	renderer, err := NewTerminalRenderer(machine)
	if err != nil {
		return err
	}

	return renderer.Run()
}
