// Package imaging provides the raster side of the scanner: decoding uploaded
// or captured images into bitmaps, the drawable display surface, detection
// annotations, and output encoding.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward. Bounding boxes are expressed in source-image pixels, and
// the display surface is always resized to the bitmap's exact dimensions
// before drawing so that boxes line up 1:1.
//
// # Decoding
//
// Decode accepts PNG, JPEG, GIF, BMP and WebP. EXIF orientation is applied
// during decode so that the bitmap matches what a browser would display.
// Any failure to read or decode the input is reported as an error wrapping
// ErrDecode.
//
// # Annotation
//
// Annotate draws a stroked rectangle per detection and a filled label tag
// above it. Line width and font size scale with the surface width:
//
//	lineWidth = max(2, round(width * 0.0025))
//	fontSize  = max(12, round(width * 0.02))
//
// Label tags never extend above y=0.
//
// # Thread Safety
//
// Surface is not safe for concurrent use; callers serialise access. Decode,
// Encode and the colour helpers are stateless. The label font is parsed once
// and each Annotate call builds its own face.
package imaging
