package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pixelwall/server/internal/config"
	"github.com/pixelwall/server/internal/display"
	"github.com/pixelwall/server/internal/handler"
	gonet "github.com/pixelwall/server/internal/net"
	"github.com/pixelwall/server/internal/net/packet"
	"github.com/pixelwall/server/internal/persist"
	"github.com/pixelwall/server/internal/playback"
	"github.com/pixelwall/server/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup report ────────────────────────────────────────────────

// console prints the startup report. Styling is dropped when logs are
// plain so a serial console never sees escape codes.
type console struct {
	w     io.Writer
	color bool
}

func newConsole(w io.Writer, cfg config.LoggingConfig) console {
	return console{w: w, color: cfg.Format == "console"}
}

func (c console) paint(code, s string) string {
	if !c.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (c console) banner(serverName string) {
	edge := strings.Repeat("─", 43)
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, "  "+c.paint("36;1", "┌"+edge+"┐"))
	fmt.Fprintf(c.w, "  %s%-43s%s\n", c.paint("36;1", "│"), fmt.Sprintf("  pixelwall v%s  ·  16x16 LED frame server", version), c.paint("36;1", "│"))
	fmt.Fprintln(c.w, "  "+c.paint("36;1", "└"+edge+"┘"))
	fmt.Fprintf(c.w, "\n  %s %s\n\n", c.paint("1", "Wall:"), serverName)
}

func (c console) section(title string) {
	rule := strings.Repeat("─", max(3, 45-len(title)))
	fmt.Fprintln(c.w, "  "+c.paint("33", "── "+title+" "+rule))
}

func (c console) stat(label string, n int) {
	num := strconv.Itoa(n)
	dots := strings.Repeat("·", max(3, 42-len(label)-len(num)))
	fmt.Fprintf(c.w, "  %s %s %s\n", label, c.paint("90", dots), c.paint("32", num))
}

func (c console) ok(msg string) {
	fmt.Fprintf(c.w, "  %s %s\n", c.paint("32", "✓"), msg)
}

func (c console) ready(msg string) {
	fmt.Fprintf(c.w, "  %s %s\n", c.paint("32", "▶"), msg)
}

func (c console) gap() {
	fmt.Fprintln(c.w)
}

// Boot status colors shown on the wall itself.
var (
	colorBooting   = [3]byte{64, 0, 0}
	colorListening = [3]byte{0, 64, 0}
	colorNoNetwork = [3]byte{0, 64, 64}
)

func showStatus(fb *display.FrameBuffer, c [3]byte, log *zap.Logger) {
	fb.Fill(c[0], c[1], c[2])
	if err := fb.Flush(); err != nil {
		log.Warn("status frame not shown", zap.Error(err))
	}
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	envPath := os.Getenv("PIXELWALL_CONFIG")
	if envPath != "" {
		cfgPath = envPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if envPath != "" || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = config.Default()
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	con := newConsole(os.Stdout, cfg.Logging)
	con.banner(cfg.Server.Name)

	// 3. Display
	con.section("Display")
	brightness, err := display.ParseBrightness(cfg.Display.Brightness)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	sink, closers, err := openSinks(cfg.Display, con, log)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	fb := display.NewFrameBuffer(sink, brightness)
	showStatus(fb, colorBooting, log)
	con.ok(fmt.Sprintf("Brightness %s, sinks %v", brightness, cfg.Display.Sinks))
	con.gap()

	// 4. Animation store
	con.section("Animation store")
	medium, err := openMedium(cfg.Medium)
	if err != nil {
		return fmt.Errorf("medium: %w", err)
	}
	if c, ok := medium.(io.Closer); ok {
		defer c.Close()
	}
	store, err := persist.NewStore(medium, packet.FrameSize, log.With(zap.String("component", "store")))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if cfg.Medium.Path == "" {
		con.ok("Frames kept in memory only")
	} else {
		con.ok(fmt.Sprintf("Image %s", cfg.Medium.Path))
	}
	con.stat("Frame slots", store.Capacity())
	con.stat("Erase blocks", int(medium.Size()/int64(medium.BlockSize())))
	con.gap()

	// 5. Playback and command handlers
	player := playback.New(store, fb, playback.RealClock(), log.With(zap.String("component", "playback")))
	pktReg := packet.NewRegistry(log)
	handler.RegisterAll(pktReg, &handler.Deps{
		Frame:  fb,
		Store:  store,
		Player: player,
		Log:    log,
	})

	// 6. Create network server
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.SessionConfig{
		OutQueueSize: cfg.Network.OutQueueSize,
		IdleTimeout:  cfg.Network.IdleTimeout,
		WriteTimeout: cfg.Network.WriteTimeout,
	}, log)
	if err != nil {
		showStatus(fb, colorNoNetwork, log)
		return fmt.Errorf("net server: %w", err)
	}
	showStatus(fb, colorListening, log)

	if cfg.Playback.Autostart {
		interval := time.Duration(cfg.Playback.IntervalMs) * time.Millisecond
		if cfg.Playback.End >= store.Capacity() {
			log.Warn("autostart window exceeds store", zap.Int("end", cfg.Playback.End), zap.Int("capacity", store.Capacity()))
		} else if err := player.Start(cfg.Playback.Begin, cfg.Playback.End, interval); err != nil {
			log.Warn("autostart failed", zap.Error(err))
		}
	}

	// 7. Run the event loop until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input := system.NewInputSystem(pktReg, player, log)
	loop := system.NewLoop(netServer.Events(), input, player, log)

	con.section("Ready")
	con.ready(fmt.Sprintf("Listening on %s", netServer.Addr().String()))
	if cfg.Network.IdleTimeout > 0 {
		con.ready(fmt.Sprintf("Idle clients dropped after %s", cfg.Network.IdleTimeout))
	}
	con.gap()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(netServer.AcceptLoop)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		netServer.Shutdown()
		return nil
	})
	err = g.Wait()

	st := store.Stats()
	log.Info("server stopped",
		zap.Uint64("programs", st.Programs),
		zap.Uint64("erases", st.Erases),
		zap.Uint32("max_block_erases", st.MaxBlockErases),
	)
	return err
}

func openMedium(cfg config.MediumConfig) (persist.Medium, error) {
	if cfg.Path == "" {
		return persist.NewMemMedium(int(cfg.Size/int64(cfg.BlockSize)), cfg.BlockSize), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	return persist.OpenFileMedium(cfg.Path, cfg.Size, cfg.BlockSize, cfg.Sync)
}

// openSinks builds the configured sinks. The returned closers release
// serial ports on shutdown.
func openSinks(cfg config.DisplayConfig, con console, log *zap.Logger) (display.Sink, []io.Closer, error) {
	var (
		sinks   display.MultiSink
		closers []io.Closer
	)
	for _, name := range cfg.Sinks {
		switch name {
		case "term":
			sinks = append(sinks, display.NewTermSink(os.Stdout, true))
		case "serial":
			order, err := display.ParseChannelOrder(cfg.ChannelOrder)
			if err != nil {
				return nil, closers, err
			}
			port, err := display.OpenSerial(cfg.SerialPort, cfg.BaudRate)
			if err != nil {
				if ports, lerr := display.ListSerialPorts(); lerr == nil {
					log.Info("available serial ports", zap.Strings("ports", ports))
				}
				return nil, closers, err
			}
			closers = append(closers, port)
			sinks = append(sinks, display.NewStreamSink(port, display.Serpentine, order))
			con.ok(fmt.Sprintf("Serial %s @ %d baud", cfg.SerialPort, cfg.BaudRate))
		}
	}
	if len(sinks) == 0 {
		return display.Discard, closers, nil
	}
	return sinks, closers, nil
}

// newLogger builds the zap logger for cfg. Formats are "json",
// "console" (colored levels) and "plain".
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console", "plain":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if cfg.Format == "console" {
			zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}

	return zapCfg.Build()
}
