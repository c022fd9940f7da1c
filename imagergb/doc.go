// Package imagergb provides the packed RGB pixel formats scanned out by the
// eLCDIF panel controller.
//
// Pixels are stored little-endian, exactly as the controller fetches them
// from memory. A 16-bit RGB565 pixel with red in the top 5 bits occupies two
// bytes, low byte first:
//
//	Pixel:  R=31 G=0 B=0  (0xF800)
//	Bytes:  0x00 0xF8
//
// The 24-bit and 32-bit formats store blue first:
//
//	RGB888:   B G R
//	XRGB8888: B G R X
//	ARGB8888: B G R A
//
// This package provides:
//
// - Format: the pixel format enumeration with its encoder, decoder and color model
// - Image: an image.Image implementation over raw panel bytes
//
// Example usage:
//
//	// Create a 480x272 RGB565 image
//	img := imagergb.NewImage(image.Rect(0, 0, 480, 272), imagergb.RGB565)
//
//	// Use with standard Go image operations
//	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
//
//	// img.Pix can be handed to lcdif.Dev.Write as is.
package imagergb
