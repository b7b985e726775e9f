/*
Package longrunning has the long running operations. An operation is returned
to the client when the result of the request isn't ready at once. The client
polls the operation by its name until it's done. The name of the operation is
its type and its ID separated with a dot, e.g. "delegation.EAbc...".
*/
package longrunning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/findy-network/findy-keri-agent/agent/kel"
)

type Type string

const (
	TypeOOBI       Type = "oobi"
	TypeQuery      Type = "query"
	TypeWitness    Type = "witness"
	TypeDelegation Type = "delegation"
	TypeDone       Type = "done"
	TypeGroup      Type = "group"
	TypeDelegator  Type = "delegator"
	TypeSubmit     Type = "submit"
	TypeEndRole    Type = "endrole"
	TypeLocScheme  Type = "locscheme"
	TypeChallenge  Type = "challenge"
	TypeRegistry   Type = "registry"
	TypeCredential Type = "credential"
	TypeExchange   Type = "exchange"
)

var types = []Type{
	TypeOOBI, TypeQuery, TypeWitness, TypeDelegation, TypeDone, TypeGroup,
	TypeDelegator, TypeSubmit, TypeEndRole, TypeLocScheme, TypeChallenge,
	TypeRegistry, TypeCredential, TypeExchange,
}

var ErrName = errors.New("invalid operation name")

func (t Type) Valid() bool {
	for _, typ := range types {
		if typ == t {
			return true
		}
	}
	return false
}

// Name returns the operation name for the type and the ID.
func Name(t Type, oid string) string {
	return string(t) + "." + oid
}

// ParseName splits the operation name to its type and ID.
func ParseName(name string) (t Type, oid string, err error) {
	typ, oid, found := strings.Cut(name, ".")
	t = Type(typ)
	if !found || oid == "" || !t.Valid() {
		return "", "", fmt.Errorf("%w: %s", ErrName, name)
	}
	return t, oid, nil
}

// Status is the error of the failed operation.
type Status struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Operation is the status of the long running operation. M is the type
// specific metadata and R the response which is set when the operation is
// done.
type Operation[M, R any] struct {
	Name     string  `json:"name"`
	Done     bool    `json:"done"`
	Error    *Status `json:"error,omitempty"`
	Metadata M       `json:"metadata,omitempty"`
	Response R       `json:"response,omitempty"`
}

// KED is a key event or exn message as a field map.
type KED = map[string]any

// KeyStateRecord is the key state of the identifier as a field map.
type KeyStateRecord = map[string]any

type OOBIMetadata struct {
	OOBI string `json:"oobi"`
}

type QueryMetadata struct {
	Pre    string    `json:"pre"`
	SN     uint64    `json:"sn"`
	Anchor *kel.Seal `json:"anchor,omitempty"`
}

type WitnessMetadata struct {
	Pre string `json:"pre"`
	SN  uint64 `json:"sn"`
}

type DelegationMetadata struct {
	Pre string `json:"pre"`
	SN  uint64 `json:"sn"`
}

type DoneMetadata struct {
	Response KED    `json:"response"`
	Pre      string `json:"pre,omitempty"`
}

type GroupMetadata struct {
	Pre string `json:"pre"`
	SN  uint64 `json:"sn"`
}

// Dependency is the operation which must be done before the dependent one.
type Dependency = Operation[map[string]any, KED]

type DelegatorMetadata struct {
	Pre     string      `json:"pre"`
	TeePre  string      `json:"teepre"`
	Anchor  *kel.Seal   `json:"anchor,omitempty"`
	Depends *Dependency `json:"depends,omitempty"`
}

type SubmitMetadata struct {
	Pre string `json:"pre"`
	SN  uint64 `json:"sn"`
}

type EndRoleMetadata struct {
	CID  string `json:"cid"`
	Role string `json:"role"`
	EID  string `json:"eid"`
}

type LocSchemeMetadata struct {
	EID    string `json:"eid"`
	Scheme string `json:"scheme"`
	URL    string `json:"url"`
}

type ChallengeMetadata struct {
	Words []string `json:"words"`
}

type RegistryMetadata struct {
	Pre     string      `json:"pre"`
	Depends *Dependency `json:"depends,omitempty"`
	Anchor  kel.Seal    `json:"anchor"`
}

type RegistryResponse struct {
	Anchor kel.Seal `json:"anchor"`
}

type CredentialMetadata struct {
	CED     KED `json:"ced"`
	Depends KED `json:"depends,omitempty"`
}

type CredentialResponse struct {
	CED KED `json:"ced,omitempty"`
}

type ExchangeMetadata struct {
	SAID string `json:"said"`
}

type (
	OOBIOperation       = Operation[OOBIMetadata, KeyStateRecord]
	QueryOperation      = Operation[QueryMetadata, KeyStateRecord]
	WitnessOperation    = Operation[WitnessMetadata, KED]
	DelegationOperation = Operation[DelegationMetadata, KED]
	DoneOperation       = Operation[DoneMetadata, KED]
	GroupOperation      = Operation[GroupMetadata, KED]
	DelegatorOperation  = Operation[DelegatorMetadata, string]
	SubmitOperation     = Operation[SubmitMetadata, KeyStateRecord]
	EndRoleOperation    = Operation[EndRoleMetadata, KED]
	LocSchemeOperation  = Operation[LocSchemeMetadata, LocSchemeMetadata]
	ChallengeOperation  = Operation[ChallengeMetadata, KED]
	RegistryOperation   = Operation[RegistryMetadata, RegistryResponse]
	CredentialOperation = Operation[CredentialMetadata, CredentialResponse]
	ExchangeOperation   = Operation[ExchangeMetadata, ExchangeMetadata]
)
