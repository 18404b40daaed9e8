// Package stream turns a server-sent event body of generateContent
// fragments into a single-pass chunk iterator plus a deferred aggregate.
//
// [Process] decodes and validates each record, runs the caller's
// [Callbacks] and folds the fragment into an [Aggregator]. The returned
// [Result] offers the fragments through [Result.Chunks] and the merged
// response through [Result.Response]; both draw from the same body, so a
// fragment is delivered to exactly one of them.
package stream
