// Package server implements the MCP (Model Context Protocol) server that
// drives the image scanner.
//
// The server exposes the scanner controller as a JSON-RPC 2.0 tool server,
// so MCP-compatible clients can upload images, operate the camera and read
// back the annotated canvas.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - scanner_upload: Detect objects in an image file
//   - scanner_camera: Open the camera, or capture and detect
//   - scanner_stop_camera: Close the camera
//   - scanner_clear: Reset canvas, results and camera
//   - scanner_state: Read the status line and results
//   - scanner_canvas: Fetch the annotated canvas as PNG or JPEG
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the Go error string and the scanner state, whose status line
//     carries the user-facing message
//
// # Usage
//
//	srv := server.New(app, server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
