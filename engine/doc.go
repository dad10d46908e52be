// Package engine is a handle-based archive reading engine with the calling conventions of the libarchive C API.
//
// Every function takes an opaque *Archive or *Entry handle and reports its outcome as a Status. Details of the most
// recent failure stay on the handle and are retrieved with Errno and ErrorString. Calls that arrive in the wrong
// state, on the wrong kind of handle, or on a freed handle fail with StatusFatal and ErrnoProgrammer instead of
// corrupting the handle.
//
// Decompression is delegated to package codec and container parsing to package archive. The engine itself only
// negotiates which of them applies (filter and format bidding), stacks them, and walks the result one header at a
// time.
//
// Handles are not safe for concurrent use. The only exception is the freed flag, which may be set from the runtime's
// cleanup goroutine.
package engine
