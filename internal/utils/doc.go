// Package utils provides shared low-level helpers used by the genchat
// internals. It covers the JSON POST helpers used to talk to the
// generative-content REST API, the Server-Sent Events record scanner that
// frames streamed responses, and small pointer and string utilities.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostStream] together with [SSEScanner] for streamed responses,
// [APIError] for non-2xx replies, and [Ptr] for converting values to pointers.
package utils
