package pltype

import "strings"

// Exchange message route constants. The notification route of a received
// message is its route under ExnPrefix.
const (
	ExnPrefix = "/exn"

	ProtocolHumanMessaging = "hmessage"
	HumanMessage           = "/" + ProtocolHumanMessaging

	ProtocolRemoteSigning = "remotesign"
	RemoteSign            = "/" + ProtocolRemoteSigning + "/ixn"
	RemoteSignRequest     = RemoteSign + "/req"
	RemoteSignReference   = RemoteSign + "/ref"

	ProtocolCoordination      = "coordination"
	Coordination              = "/" + ProtocolCoordination + "/credentials"
	CoordinationInfoRequest   = Coordination + "/info/req"
	CoordinationInfoResponse  = Coordination + "/info/resp"
	CoordinationIssuePropose  = Coordination + "/issue/prop"
	CoordinationIssueResponse = Coordination + "/issue/resp"

	ProtocolTunnel      = "tunnel"
	TunnelWalletRequest = "/" + ProtocolTunnel + "/wallet/request"
	TunnelServerRequest = "/" + ProtocolTunnel + "/server/request"

	ProtocolDelegate = "delegate"
	DelegateRequest  = "/" + ProtocolDelegate + "/request"
)

// Courier topics
const (
	TopicDelegate = "delegate"
)

// NotifyRoute returns the notification route of the exchange route.
func NotifyRoute(route string) string {
	return ExnPrefix + route
}

// Protocol returns the protocol family of the route, i.e. its first segment.
func Protocol(route string) string {
	s := strings.TrimPrefix(route, "/")
	p, _, _ := strings.Cut(s, "/")
	return p
}
