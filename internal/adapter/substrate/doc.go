// Package substrate reads Subtensor storage from a Substrate node over
// JSON-RPC on a websocket.
//
// Every Conn is a single websocket carrying one request at a time. Queries take
// a Snapshot so that all reads for one logical request see the same block.
package substrate
