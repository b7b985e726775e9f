/*
Package main is the application package of the Findy KERI agent. The agent
keeps the delegated key events of its local identifiers in escrow until their
delegators have anchored them and their witnesses have receipted them. Then it
completes the delegation and tells the proxy about it with an exn message.

The agent has a small command set:

	fka agent start       runs the escrow sweeps until a signal
	fka delegation status prints the delegation operation of an event
	fka escrow list       lists the entries of the delegation escrows

Every flag can be given with an environment variable as well, e.g.
FKA_AGENT_DB_FILE, or in a configuration file given with --config.
*/
package main
