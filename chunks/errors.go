package chunks

import "errors"

var (
	ErrInvalidGeometry   = errors.New("invalid chunk geometry")
	ErrMalformedChunkKey = errors.New("malformed chunk key")
	ErrCorruptChunk      = errors.New("corrupt chunk")
	ErrUnknownSheet      = errors.New("unknown sheet id")
)
