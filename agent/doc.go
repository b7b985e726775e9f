/*
Package agent is a package for the KERI agent and its services. The package is
empty itself and all the functionality is inside sub-packages.

The kel package holds the key events and the key states of the identifiers we
know. The escrow package keeps the delegated events which wait for their
delegators and witnesses. The delegating.Sealer is the most important
abstraction: it sweeps the escrows and completes the delegations. The courier,
witness and exn packages offer services for it to send messages, to collect
receipts and to process the exn messages. The longrunning package lets clients
poll the results.
*/
package agent
