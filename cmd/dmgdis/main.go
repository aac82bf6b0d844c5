// Command dmgdis disassembles a ROM file, one fixed-shape line per
// instruction.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli"

	"github.com/valerio/go-dmg/dmg/isa"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgdis"
	app.Description = "Disassemble a ROM file"
	app.Usage = "dmgdis [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "start",
			Usage: "Starting address (hex)",
			Value: "0",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error disassembling", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}

	start, err := strconv.ParseUint(c.String("start"), 16, 16)
	if err != nil {
		return fmt.Errorf("bad starting address %q: %v", c.String("start"), err)
	}

	rom, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	fmt.Printf("rom size: %d (bytes)\n", len(rom))

	addr := uint16(start)
	for int(addr) < len(rom) {
		disasm := isa.Disassemble(rom, addr)
		fmt.Println(disasm.Full)
		if disasm.Size == 0 {
			break
		}
		addr += uint16(disasm.Size)
	}
	return nil
}
