// Package chat implements a multi-turn conversation with a generative model.
//
// A [Session] owns the transcript (through a [memory.Provider]) and
// serializes sends through a FIFO gate: a second SendMessage or
// SendMessageStream waits until the previous one has fully settled, which
// for a stream means it was drained, closed, abandoned or its context was
// cancelled. A send records the user turn and the model turn together; a
// failed or blocked send leaves the history untouched.
//
// # Usage
//
//	session, err := chat.New(model, chat.Params{},
//	    chat.WithMemory(inmemory.New()),
//	    chat.WithObserver(slogobs.New()),
//	)
//	if err != nil {
//	    return err
//	}
//	result, err := session.SendMessage(ctx, "Hello")
//	if err != nil {
//	    return err
//	}
//	text, _ := result.Response.Text()
//
// Streaming:
//
//	res, err := session.SendMessageStream(ctx, stream.Callbacks{}, "Tell me a story")
//	if err != nil {
//	    return err
//	}
//	for chunk, err := range res.Chunks() {
//	    ...
//	}
//	final, err := res.Response()
package chat
