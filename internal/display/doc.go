// Package display renders decoded advertisements for people: a
// concise node/channel listing table and an opcode-by-opcode phrase
// trace for protocol debugging.
package display
