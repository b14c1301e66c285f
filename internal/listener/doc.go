// Package listener joins the Livewire advertisement multicast group,
// reads datagrams off the wire and feeds them through the decoder one
// at a time. Decode failures are scoped to the single datagram: they
// are logged and counted, and the listener keeps listening.
package listener
