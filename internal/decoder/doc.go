// Package decoder implements the Message Decoder component.
//
// The Message Decoder:
//   - Classifies each inbound frame as a full snapshot document or a {type, data} envelope
//   - Accepts the producer's flat broadcasts, where the envelope itself is the payload
//   - Produces exactly one Record from a closed set, or a *DecodeError
//   - Ignores well-formed envelopes of unknown type
package decoder
