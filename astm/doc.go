// Package astm provides an implementation of the half-duplex, character-oriented
// link protocol used by laboratory instruments (ASTM E1381 / LIS1-A style)
// running over an arbitrary byte stream.
//
// # Protocol Overview
//
// The link is half-duplex with explicit handshake control using single-byte
// control characters:
//
//   - ENQ (0x05): Request to Send, opens a transmission
//   - ACK (0x06): Correct Reception
//   - NAK (0x15): Incorrect Reception, the sender replays the last frame
//   - EOT (0x04): End of Transmission
//
// Text is carried in data frames:
//
//	STX SEQ CONTENT [CR] ETX|ETB CHK1 CHK2 CR LF
//
// SEQ is a single ASCII digit in [0, 7] that starts at 1 and wraps modulo 8.
// A message longer than the configured maximum chunk length is split into
// several frames; every frame but the last is terminated by ETB, the last one
// by CR ETX. The checksum is two uppercase hexadecimal digits computed over
// the bytes from SEQ through the terminator.
//
// # Sessions
//
// [SenderSession] and [ReceiverSession] are pure reactors: they never block,
// spawn goroutines or start timers. Every emission is one write to the
// underlying [io.Writer]. [Link] binds a session to a byte-stream port and
// serializes all state mutations on a single goroutine.
package astm
