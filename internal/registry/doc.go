// Package registry keeps the last advertisement seen from every node
// on the multicast group, with a TTL janitor dropping nodes that stop
// advertising. It is the cross-message state the decoder deliberately
// does not hold.
package registry
