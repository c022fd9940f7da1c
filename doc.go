// Package lcdif drives an eLCDIF parallel RGB panel controller through a
// double-buffered compositor.
//
// The eLCDIF continuously scans a frame buffer out to the panel. Applications
// never touch that buffer: they submit dirty rectangles, which are merged into
// a second buffer, rotated to the panel's fixed orientation, and handed to the
// controller. The controller latches the new buffer at the next frame
// boundary, so a half-drawn frame is never shown.
//
// # Display Characteristics
//
// - RGB565, BGR565, RGB888, XRGB8888 and ARGB8888 frame buffers
// - Fixed 0°, 90°, 180° or 270° clockwise orientation
// - Two frame buffers of the native panel size
// - At most one frame in flight; writers block until the previous one is shown
// - Optional PXP block engine for the tile-aligned part of each write
//
// # Basic Usage
//
// Example of creating and using the display on a Linux target:
//
//	package main
//
//	import (
//		"context"
//		"image"
//		"image/color"
//		"time"
//
//		"periph.io/x/devices/v3/lcdif"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Map the register block
//		regs, _ := lcdif.OpenMMIO(0x402B8000, 0x1000)
//		defer regs.Close()
//
//		// Frame buffers must be physically contiguous
//		mem := &lcdif.PhysAllocator{}
//		defer mem.Close()
//
//		// Create device
//		dev, _ := lcdif.New(regs, mem, &lcdif.Opts{
//			W:           480,
//			H:           272,
//			Orientation: lcdif.Rotated90,
//		})
//		defer dev.Halt()
//
//		// Complete frames from the interrupt status
//		go dev.PollIRQ(context.Background(), 2*time.Millisecond)
//
//		// Display an image
//		dev.Draw(dev.Bounds(), image.NewUniform(color.White), image.Point{})
//	}
//
// # Coordinates and Orientation
//
// Regions, Draw and Bounds use logical coordinates, the ones the application
// sees. At 90° and 270° the logical width is the panel height. A pixel at
// logical (x, y) lands on panel column and row:
//
//	0°:   (x, y)
//	90°:  (W-1-y, x)
//	180°: (W-1-x, H-1-y)
//	270°: (y, H-1-x)
//
// where W×H is the native panel size.
//
// # Drawing Modes
//
// ## Region Writes
//
// Write takes raw pixels in the panel format. Pitch allows writing a
// sub-rectangle of a larger image without copying:
//
//	dev.Write(lcdif.Region{X: 10, Y: 20, Width: 64, Height: 32, Pitch: 480, Pix: pix})
//
// Only the pixels of the region change; the rest of the frame is carried
// over from the frame currently on screen.
//
// ## Draw
//
// Draw implements display.Drawer. Any image.Image is converted to the panel
// format first; an imagergb.Image of the panel format is written directly.
//
// ## Canvas
//
// Canvas implements the tinygo drivers.Displayer interface so tinyfont and
// similar libraries can draw onto the panel. Display writes the bounding box
// of the pixels changed since the previous call.
//
// # Frame Completion
//
// Each write waits for the previous frame to be adopted by the controller.
// The controller signals it with the frame-done interrupt, which must be fed
// back through one of:
//
//	dev.WatchIRQ(ctx, pin)   // interrupt routed to a GPIO line
//	dev.PollIRQ(ctx, period) // interrupt status polled over the bus
//	dev.FrameDone()          // custom interrupt plumbing
//
// Without Opts.FrameTimeout a missed interrupt blocks writers until their
// context is done. With it, the device becomes Faulted and refuses further
// writes.
//
// # Block Engine
//
// Opts.Blitter accepts a block engine such as pxp.Dev. The engine rotates the
// largest tile-aligned block at the origin of each write; the right and
// bottom remainders are rotated in software. Blocks the engine cannot reach,
// such as a pxp.Dev source with Region.Addr of 0, are rotated in software.
//
// # Compatibility with periph.io
//
// This driver implements the display.Drawer interface from periph.io:
// https://pkg.go.dev/periph.io/x/conn/v3/display
package lcdif
