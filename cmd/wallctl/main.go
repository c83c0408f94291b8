package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pixelwall/server/internal/client"
	"github.com/pixelwall/server/internal/data"
	"github.com/pixelwall/server/internal/display"
	"github.com/pixelwall/server/internal/net/packet"
	"github.com/pixelwall/server/internal/persist"
	"github.com/pixelwall/server/internal/playback"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	addrFlag      string
	timeoutFlag   time.Duration
	verboseFlag   bool
	halfFlag      bool
	playFlag      bool
	blockSizeFlag int
	allFlag       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wallctl",
		Short: "Control a pixelwall LED matrix",
		Long: `wallctl sends frames and animations to a pixelwall server.

Frames can be shown immediately, or uploaded to the wall's animation
store and played back in a loop without a connected client.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&addrFlag, "addr", "a", "127.0.0.1:4242", "Wall address")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 5*time.Second, "Dial and acknowledgement timeout")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log debug output")

	showCmd := &cobra.Command{
		Use:   "show <image>",
		Short: "Show an image now",
		Long: `Show the first frame of a .png, .gif or raw .rgb file.

With --half the frame is sent at 4 bits per channel, halving the
transfer size.`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}
	showCmd.Flags().BoolVar(&halfFlag, "half", false, "Send at 4 bits per channel")

	fillCmd := &cobra.Command{
		Use:   "fill <r> <g> <b>",
		Short: "Fill the wall with one color",
		Args:  cobra.ExactArgs(3),
		RunE:  runFill,
	}

	uploadCmd := &cobra.Command{
		Use:   "upload <manifest.yaml>",
		Short: "Store an animation on the wall",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
	uploadCmd.Flags().BoolVar(&playFlag, "play", false, "Start playback after the upload")

	playCmd := &cobra.Command{
		Use:   "play <begin> <end> <interval_ms>",
		Short: "Loop stored frames begin..end",
		Args:  cobra.ExactArgs(3),
		RunE:  runPlay,
	}

	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Work with flash image files",
	}
	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "List the frames stored in a flash image",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().IntVar(&blockSizeFlag, "block-size", 4096, "Erase block size of the image")
	inspectCmd.Flags().BoolVar(&allFlag, "all", false, "Also list erased slots")
	imageCmd.AddCommand(inspectCmd)

	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports for a directly attached driver board",
		RunE:  runPorts,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wallctl %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(showCmd, fillCmd, uploadCmd, playCmd, imageCmd, portsCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verboseFlag {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func dial(cmd *cobra.Command) (*client.Client, error) {
	return client.Dial(cmd.Context(), addrFlag, timeoutFlag)
}

func runShow(cmd *cobra.Command, args []string) error {
	frames, err := data.LoadImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	var full packet.ShowFull
	copy(full.Pixels[:], frames[0])

	var out packet.Command = &full
	if halfFlag {
		out = &packet.ShowHalf{Packed: packet.PackHalf(&full.Pixels)}
	}

	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Send(out); err != nil {
		return err
	}
	fmt.Printf("Shown %s (%s)\n", args[0], packet.Name(out.Opcode()))
	return nil
}

func parseByte(s, name string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: want 0..255", name, s)
	}
	return byte(v), nil
}

func runFill(cmd *cobra.Command, args []string) error {
	var rgb [3]byte
	for i, name := range []string{"red", "green", "blue"} {
		v, err := parseByte(args[i], name)
		if err != nil {
			return err
		}
		rgb[i] = v
	}
	var frame display.Frame
	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			frame.Set(x, y, rgb[0], rgb[1], rgb[2])
		}
	}

	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Send(&packet.ShowFull{Pixels: [packet.FrameSize]byte(frame)})
}

func runUpload(cmd *cobra.Command, args []string) error {
	anim, err := data.LoadAnimation(args[0], newLogger())
	if err != nil {
		return err
	}
	if anim.End() > 0xFFFF {
		return fmt.Errorf("animation ends at slot %d, beyond the protocol range", anim.End())
	}
	fmt.Printf("Animation: %s (%d frames, slots %d..%d)\n", anim.Name, len(anim.Frames), anim.Slot, anim.End())

	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	bar := progressbar.NewOptions(len(anim.Frames),
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	if err := c.Upload(anim.Slot, anim.Frames, func(done, _ int) {
		bar.Set(done)
	}); err != nil {
		return err
	}
	bar.Finish()
	fmt.Println("\nUpload complete!")

	if !playFlag {
		return nil
	}
	ms := anim.Interval.Milliseconds()
	if ms > 0xFFFF {
		ms = 0xFFFF
	}
	if err := c.Send(&packet.PlayRange{
		Begin:      uint16(anim.Slot),
		End:        uint16(anim.End()),
		IntervalMs: uint16(ms),
	}); err != nil {
		return err
	}
	fmt.Printf("Playing every %s\n", anim.Interval)
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	var vals [3]uint16
	for i, name := range []string{"begin", "end", "interval"} {
		v, err := strconv.ParseUint(args[i], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, args[i])
		}
		vals[i] = uint16(v)
	}
	if vals[0] > vals[1] {
		return fmt.Errorf("%w: %d > %d", playback.ErrInvalidRange, vals[0], vals[1])
	}
	pr := &packet.PlayRange{Begin: vals[0], End: vals[1], IntervalMs: vals[2]}

	c, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Send(pr)
}

func runInspect(cmd *cobra.Command, args []string) error {
	st, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	m, err := persist.OpenFileMedium(args[0], st.Size(), blockSizeFlag, false)
	if err != nil {
		return err
	}
	defer m.Close()

	store, err := persist.NewStore(m, packet.FrameSize, newLogger())
	if err != nil {
		return err
	}

	fmt.Printf("Image:  %s (%d bytes, %d blocks)\n", args[0], st.Size(), st.Size()/int64(blockSizeFlag))
	fmt.Printf("Slots:  %d\n\n", store.Capacity())

	used := 0
	for slot := 0; slot < store.Capacity(); slot++ {
		erased, err := store.SlotErased(slot)
		if err != nil {
			return err
		}
		if erased {
			if allFlag {
				fmt.Printf("  %5d  erased\n", slot)
			}
			continue
		}
		used++
		sum, err := store.Checksum(slot)
		if err != nil {
			return err
		}
		fmt.Printf("  %5d  block %4d  blake3 %s\n", slot, slot/persist.SlotsPerBlock, hex.EncodeToString(sum[:8]))
	}
	fmt.Printf("\n%d of %d slots in use\n", used, store.Capacity())
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := display.ListSerialPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
