// Command dmg runs a ROM headless for a fixed number of frames and
// reports the final machine state. It exists for timing measurements
// and for exercising ROMs in CI where no terminal is attached.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/valerio/go-dmg/dmg"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmg-headless"
	app.Description = "Run a ROM without a display"
	app.Usage = "dmg-headless [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run",
			Value: 60,
		},
		cli.BoolFlag{
			Name:  "state",
			Usage: "Print CPU state after the run",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
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

	frames := c.Int("frames")
	start := time.Now()
	for i := 0; i < frames; i++ {
		machine.RunFrame()
	}
	elapsed := time.Since(start)

	slog.Info("run complete",
		"frames", frames,
		"elapsed", elapsed,
		"fps", float64(frames)/elapsed.Seconds())

	if c.Bool("state") {
		cpu := machine.CPU()
		fmt.Printf("pc=$%04X sp=$%04X ir=$%02X flags=$%02X state=%s\n",
			cpu.PC(), cpu.SP(), cpu.IR(), cpu.Flags(), cpu.State())
	}
	return nil
}
