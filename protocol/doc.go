/*
Package protocol is package for exchange message (exn) protocol handlers. The
handlers do the route specific verification of the received messages and
notify the controllers about them. The routes are registered to the
exn.Exchanger with the LoadHandlers functions of the sub-packages.

The handlers are stateless. Everything they need to know about earlier
messages is read from the exn.Log.
*/
package protocol
