package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
	"github.com/veandco/go-sdl2/sdl"

	chip8 "github.com/MilkeeyCat/chip-go"
	"github.com/MilkeeyCat/chip-go/internal/cli"
	"github.com/MilkeeyCat/chip-go/internal/clock"
	"github.com/MilkeeyCat/chip-go/internal/config"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const fps = 60

var keyMap = map[sdl.Keycode]chip8.Key{
	sdl.K_1: chip8.Key1,
	sdl.K_2: chip8.Key2,
	sdl.K_3: chip8.Key3,
	sdl.K_4: chip8.KeyC,
	sdl.K_q: chip8.Key4,
	sdl.K_w: chip8.Key5,
	sdl.K_e: chip8.Key6,
	sdl.K_r: chip8.KeyD,
	sdl.K_a: chip8.Key7,
	sdl.K_s: chip8.Key8,
	sdl.K_d: chip8.Key9,
	sdl.K_f: chip8.KeyE,
	sdl.K_z: chip8.KeyA,
	sdl.K_x: chip8.Key0,
	sdl.K_c: chip8.KeyB,
	sdl.K_v: chip8.KeyF,
}

func init() {
	// SDL event handling and rendering have to stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	ctx := app.Context()

	opts, err := cli.ParseFlags(os.Args)
	logger := config.CreateLogger(opts.Debug || opts.Trace, opts.Quiet)
	if err != nil {
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			printBanner(logger)
			usageErr.ShowUsage(os.Stderr)
		} else {
			logger.Error("Invalid options", log.Err(err))
		}
		os.Exit(1)
	}
	printBanner(logger)

	rom, err := os.ReadFile(opts.ROM)
	if err != nil {
		logger.Fatal(fmt.Sprintf("reading rom file '%s': %s", opts.ROM, err))
	}

	if opts.Disassemble {
		if err := chip8.WriteListing(os.Stdout, rom); err != nil {
			logger.Fatal(err.Error())
		}
		return
	}

	interpreter := chip8.New(chip8.WithLogger(logger), chip8.WithTrace(opts.Trace))
	if err := interpreter.LoadROM(rom); err != nil {
		logger.Fatal(fmt.Sprintf("loading rom file '%s': %s", opts.ROM, err))
	}
	logger.Info("Loaded ROM",
		log.String("file", opts.ROM),
		log.Int("size", len(rom)),
		log.Int("ips", opts.InstructionsPerSecond))

	if err := run(ctx, logger, opts, interpreter, rom); err != nil {
		logger.Error("Emulation failed",
			log.Err(err),
			log.String("state", interpreter.State().String()))
		os.Exit(1)
	}
}

func printBanner(logger *log.Logger) {
	logger.Info("chip-go - CHIP-8 interpreter",
		log.String("version", buildinfo.Version(version, commit, date)))
}

func run(ctx context.Context, logger *log.Logger, opts config.Options, interpreter *chip8.Interpreter, rom []byte) error {
	if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
		return fmt.Errorf("initializing sdl: %w", err)
	}
	defer sdl.Quit()

	scale := int32(opts.Scale)
	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, chip8.DisplayWidth*scale, chip8.DisplayHeight*scale, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, 0)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	defer renderer.Destroy()

	var speaker *beeper
	if !opts.Mute {
		speaker, err = newBeeper()
		if err != nil {
			logger.Warn("Audio device unavailable, running without sound", log.Err(err))
		}
	}
	defer speaker.close()

	clk, err := clock.New(opts.InstructionsPerSecond, clock.TimerFrequency)
	if err != nil {
		return fmt.Errorf("creating clock: %w", err)
	}

	ticker := time.NewTicker(time.Second / fps)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Emulation stopped")
			return nil

		case now := <-ticker.C:
			quit, reset := pollEvents(interpreter)
			if quit {
				return nil
			}
			if reset {
				interpreter.Reset()
				if err := interpreter.LoadROM(rom); err != nil {
					return err
				}
				logger.Info("Machine reset")
			}

			ticks, timerTicks := clk.Advance(now.Sub(last))
			last = now

			for range ticks {
				if err := interpreter.Tick(); err != nil {
					return err
				}
			}
			for range timerTicks {
				interpreter.TickTimers()
			}

			speaker.set(interpreter.ShouldPlaySound())

			if err := draw(renderer, interpreter.Display(), scale); err != nil {
				return err
			}
		}
	}
}

// pollEvents feeds keyboard state into the interpreter and reports whether
// the window was closed or a reset was requested with F5.
func pollEvents(interpreter *chip8.Interpreter) (quit, reset bool) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event := event.(type) {
		case *sdl.QuitEvent:
			return true, false

		case *sdl.KeyboardEvent:
			if event.Keysym.Sym == sdl.K_F5 && event.Type == sdl.KEYUP {
				reset = true
				continue
			}
			if key, ok := keyMap[event.Keysym.Sym]; ok {
				switch event.Type {
				case sdl.KEYUP:
					interpreter.SetKeyState(key, chip8.KeyUp)
				case sdl.KEYDOWN:
					interpreter.SetKeyState(key, chip8.KeyDown)
				}
			}
		}
	}

	return false, reset
}

func draw(renderer *sdl.Renderer, display chip8.Display, scale int32) error {
	if err := renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		return fmt.Errorf("setting draw color: %w", err)
	}
	if err := renderer.Clear(); err != nil {
		return fmt.Errorf("clearing renderer: %w", err)
	}
	if err := renderer.SetDrawColor(255, 255, 255, 255); err != nil {
		return fmt.Errorf("setting draw color: %w", err)
	}

	for y, row := range display {
		for x, lit := range row {
			if !lit {
				continue
			}

			rect := sdl.Rect{
				X: int32(x) * scale,
				Y: int32(y) * scale,
				W: scale,
				H: scale,
			}
			if err := renderer.FillRect(&rect); err != nil {
				return fmt.Errorf("drawing pixel: %w", err)
			}
		}
	}

	renderer.Present()
	return nil
}
