// Package websocket serves the interactive dashboard session on /ws.
//
// A client sends its filter selection as a JSON object with the keys
// month, diagnosis, age_group and org_unit. A missing key, null, an empty
// string or the dimension's "All" label leaves that dimension
// unrestricted. Every selection frame is answered by exactly one
// "dashboard" frame, or an "error" frame when the selection is invalid.
// The first frame of a session is an "options" frame with the selector
// domains.
package websocket
