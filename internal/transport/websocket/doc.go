// Package websocket implements the session transport over a websocket
// connection: header based authentication, a JSON hello handshake, text
// frames for session messages and binary frames for audio.
package websocket
