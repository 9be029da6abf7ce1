// Package board provides the shared type definitions and Redis schema for
// the Roost coordination board. The board is the durable side of the
// coordination layer: the in-memory engines (presence, oplog, delegation,
// skill routing) own live state, and flush records here so that CLIs,
// dashboards and restarted daemons can observe it.
//
// All Redis keys and channels are namespaced by instance name so that
// multiple Roost instances can safely share a single Redis server.
//
// The package also defines the closed set of inbound action kinds the
// dispatcher understands, and the Rejection record used to signal
// business-rule violations without raising errors.
package board
