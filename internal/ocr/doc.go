// Package ocr provides a text detector backed by Tesseract (via
// gosseract/v2) that satisfies the detection.Model contract.
//
// Each recognised word becomes one prediction: the class is the word, the
// score is Tesseract's word confidence scaled to 0-1, and the box is the
// word's bounding box in source-image pixels. The usual confidence filter
// then applies, so only words scoring at least 15% are shown.
//
// # Prerequisites
//
// Tesseract and the language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Loader.Load runs a probe recognition, so a missing installation is
// reported at load time rather than on the first detection.
package ocr
