package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/pianoml/player"
	"github.com/urfave/cli"
)

var version string

func main() {

	app := cli.NewApp()
	app.Version = version
	app.Compiled = time.Now()
	app.Name = "pianoml"
	app.Usage = "generate an expressive piano performance from a seed"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "params,p",
			Value: "params.json",
			Usage: "pretrained parameter file",
		},
		cli.StringFlag{
			Name:  "quantization,q",
			Value: "quantization.json",
			Usage: "bin-edge table file",
		},
		cli.StringFlag{
			Name:  "seed,s",
			Value: "seed.json",
			Usage: "5xN seed performance file",
		},
		cli.IntFlag{
			Name:  "notes,n",
			Value: 100,
			Usage: "number of notes to generate",
		},
		cli.Float64Flag{
			Name:  "temperature,t",
			Value: 1.0,
			Usage: "sampling temperature",
		},
		cli.Int64Flag{
			Name:  "rand",
			Value: 0,
			Usage: "random seed (0 = time-based)",
		},
		cli.StringFlag{
			Name:  "out,o",
			Usage: "output MIDI file (default: fingerprint name)",
		},
		cli.StringFlag{
			Name:  "records",
			Usage: "also write the textual record stream here",
		},
		cli.BoolFlag{
			Name:  "play",
			Usage: "play the result on a MIDI device",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "debug logging",
		},
	}

	app.Action = func(c *cli.Context) (err error) {
		fmt.Println(`

		_______________________________________
	 |  | | | |  |  | | | | | |  |  | | | |  |
	 |  | | | |  |  | | | | | |  |  | | | |  |
	 |  | | | |  |  | | | | | |  |  | | | |  |
	 |  |_| |_|  |  |_| |_| |_|  |  |_| |_|  |
	 |   |   |   |   |   |   |   |   |   |   |
	 |   |   |   |   |   |   |   |   |   |   |
	 |___|___|___|___|___|___|___|___|___|___|

	 Lets play some music!
											`)
		p := player.New(c.Bool("debug"))
		p.ParamsFile = c.String("params")
		p.SchemeFile = c.String("quantization")
		p.SeedFile = c.String("seed")
		p.NoteCount = c.Int("notes")
		p.Temperature = c.Float64("temperature")
		p.RandomSeed = c.Int64("rand")
		p.OutputFile = c.String("out")
		p.RecordsFile = c.String("records")
		p.Play = c.Bool("play")
		return p.Run()
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Print(err)
	}
}
