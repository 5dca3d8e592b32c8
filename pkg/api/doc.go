// Package api defines the request and response messages of the groupledger.v1
// RPC services. Messages travel as JSON; money amounts are decimal strings in
// the group currency (for example "12.50") so no precision is lost in transit.
package api
