// Package ws is the host transport: players connect over a WebSocket,
// their frames are routed into the interaction registry, and say/dialogue
// messages come back on the same connection.
//
// Routes:
//
//	GET /ws?player=<id>            upgrade to a player session
//	GET /healthz                   liveness
//	GET /players                   connected players
//	GET /players/:player           dialogue state and chat history
//	GET /players/:player/facts     fact snapshot
//
// Closing the socket disconnects the player from the registry, which saves
// and clears their facts.
package ws
