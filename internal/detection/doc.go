// Package detection wraps an external object-detection model behind a small
// contract and turns its raw output into filtered detections.
//
// The model itself is opaque. A Loader produces a Model; a Model answers
// Detect(ctx, image, maxCandidates) with raw predictions of the form
// {class, score, bbox:[x, y, width, height]} in source-image pixels.
//
// # Pipeline
//
// Detector owns the model handle and its lifecycle:
//
//  1. Load: fetch or initialise the model once. While loading, Detect fails
//     with ErrModelUnavailable. If loading fails, every later Detect fails
//     with ErrModelLoad until a new Detector is built.
//  2. Detect: ask the model for at most MaxCandidates predictions.
//  3. Filter: drop predictions scoring below ConfidenceThreshold.
//
// # Backends
//
// RemoteLoader talks to an HTTP inference service. Other backends, such as
// the Tesseract text detector in package ocr, implement Model directly.
package detection
