// Package advert decodes Livewire source advertisement messages.
// It turns one raw multicast datagram into a structured Advertisement
// record describing a node and the audio channels it offers, handling
// the phrase-based binary format with its nested, count-delimited
// sections. Fields whose meaning has not been reverse-engineered are
// preserved verbatim, never interpreted.
package advert
