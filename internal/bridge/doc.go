// Package bridge exposes the todo tools to MCP clients over SSE.
//
// The bridge is the only stateful component in the system. It runs an MCP
// server with three tools (addTodoItem, deleteTodoItem, updateTodoItem),
// each of which forwards to the todo CRUD API over HTTP. Clients connect
// through two endpoints:
//
//   - GET /sse opens a long-lived server-push stream. The bridge assigns a
//     fresh session id, binds an SSE transport to the response stream,
//     registers it in the session manager and connects the MCP server to it.
//     The first event on the stream names the message endpoint for this
//     session.
//
//   - POST /messages?sessionId=<id> delivers one JSON-RPC message to the
//     named open session. Unknown or closed sessions fail with 400 and no
//     side effect.
//
// The session manager is the single point of shared mutation: a mutex-guarded
// map from session id to transport, mutated only by the stream open/close
// paths and read by message delivery. Closing a stream promptly removes its
// entry so dangling deliveries fail fast instead of hanging.
//
// Tool results are tagged: a failed outbound call produces an MCP result with
// IsError set and a diagnostic message rather than a success-shaped text.
package bridge
