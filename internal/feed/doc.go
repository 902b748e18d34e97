// Package feed streams discovered cast receivers to websocket clients.
//
// A Hub subscribes to a discovery.Locator and forwards every newly discovered
// receiver as a JSON Event on /ws. After each session the snapshot served on
// /receivers is replaced.
//
//	{"type":"receiver","receiver":{"name":"Living Room","address":"https://10.0.0.5","port":8009,...},"timestamp":"..."}
//
// Each session starts with an empty registry, so receivers are republished
// once per session. Clients should key on receiver.id.
package feed
