// Package attach turns local files and web pages into message parts.
//
// HTML is converted to Markdown and sent as a text part. Other text formats
// are sent as text with a short header naming the source. Everything else
// becomes an inline blob tagged with its MIME type.
//
//	part, err := attach.File("report.pdf")
//	resp, err := session.SendMessage(ctx, "Summarize this", part)
package attach
