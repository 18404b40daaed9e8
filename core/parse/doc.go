// Package parse decodes model output into Go values. Models often wrap JSON
// in prose or markdown fences, emit slightly broken JSON, or echo a schema
// envelope ({"type": ..., "value": ...}) instead of the value itself. The
// decoders here try, in order: the text as is, each balanced JSON candidate
// found in it, a jsonrepair pass, and finally schema unwrapping.
//
// [ResponseAs] decodes the text of a response (for example one produced with
// a ResponseSchema from [ai.SchemaFor]); [FunctionArgsAs] decodes the
// arguments of a function call.
package parse
