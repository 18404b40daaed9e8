// Package tool lets a chat answer the model's function calls with Go
// functions.
//
// [New] wraps a typed function: the parameter schema is inferred from its
// input type and the arguments of each call are decoded into it. A [Catalog]
// holds the tools of a session, declares them for the request
// ([Catalog.Declarations]) and turns a batch of calls into the function
// response parts of the next user turn ([Catalog.Handle]).
package tool
