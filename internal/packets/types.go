// Package packets layers protocol typing on top of the udt framing:
// each packet carries a one-byte type and version, and sourced types
// additionally carry the sender's session-local ID and an integrity
// hash keyed by the per-node connection secret.
package packets

import "fmt"

// PacketType identifies the application protocol message carried by a
// packet.
type PacketType uint8

const (
	TypeUnknown                     PacketType = 0
	TypeStunResponse                PacketType = 1
	TypeDomainList                  PacketType = 2
	TypePing                        PacketType = 3
	TypePingReply                   PacketType = 4
	TypeKillAvatar                  PacketType = 5
	TypeAvatarData                  PacketType = 6
	TypeInjectAudio                 PacketType = 7
	TypeMixedAudio                  PacketType = 8
	TypeMicrophoneAudioNoEcho       PacketType = 9
	TypeMicrophoneAudioWithEcho     PacketType = 10
	TypeBulkAvatarData              PacketType = 11
	TypeSilentAudioFrame            PacketType = 12
	TypeDomainListRequest           PacketType = 13
	TypeRequestAssignment           PacketType = 14
	TypeCreateAssignment            PacketType = 15
	TypeDomainConnectionDenied      PacketType = 16
	TypeMuteEnvironment             PacketType = 17
	TypeAudioStreamStats            PacketType = 18
	TypeDomainServerPathQuery       PacketType = 19
	TypeDomainServerPathResponse    PacketType = 20
	TypeDomainServerAddedNode       PacketType = 21
	TypeICEServerPeerInformation    PacketType = 22
	TypeICEServerQuery              PacketType = 23
	TypeOctreeStats                 PacketType = 24
	TypeNodeIgnoreRequest           PacketType = 25
	TypeDomainConnectRequest        PacketType = 26
	TypeDomainServerRequireDTLS     PacketType = 27
	TypeNodeJsonStats               PacketType = 28
	TypeEntityQuery                 PacketType = 29
	TypeEntityData                  PacketType = 30
	TypeEntityEdit                  PacketType = 31
	TypeDomainServerConnectionToken PacketType = 32
	TypeDomainDisconnectRequest     PacketType = 33
	TypeDomainServerRemovedNode     PacketType = 34
	TypeMessagesData                PacketType = 35
	TypeMessagesSubscribe           PacketType = 36
	TypeMessagesUnsubscribe         PacketType = 37
	TypeNodeKickRequest             PacketType = 38
	TypeNodeMuteRequest             PacketType = 39
	TypeAvatarIdentity              PacketType = 40
	TypeAvatarQuery                 PacketType = 41
)

var typeNames = map[PacketType]string{
	TypeUnknown:                     "Unknown",
	TypeStunResponse:                "StunResponse",
	TypeDomainList:                  "DomainList",
	TypePing:                        "Ping",
	TypePingReply:                   "PingReply",
	TypeKillAvatar:                  "KillAvatar",
	TypeAvatarData:                  "AvatarData",
	TypeInjectAudio:                 "InjectAudio",
	TypeMixedAudio:                  "MixedAudio",
	TypeMicrophoneAudioNoEcho:       "MicrophoneAudioNoEcho",
	TypeMicrophoneAudioWithEcho:     "MicrophoneAudioWithEcho",
	TypeBulkAvatarData:              "BulkAvatarData",
	TypeSilentAudioFrame:            "SilentAudioFrame",
	TypeDomainListRequest:           "DomainListRequest",
	TypeRequestAssignment:           "RequestAssignment",
	TypeCreateAssignment:            "CreateAssignment",
	TypeDomainConnectionDenied:      "DomainConnectionDenied",
	TypeMuteEnvironment:             "MuteEnvironment",
	TypeAudioStreamStats:            "AudioStreamStats",
	TypeDomainServerPathQuery:       "DomainServerPathQuery",
	TypeDomainServerPathResponse:    "DomainServerPathResponse",
	TypeDomainServerAddedNode:       "DomainServerAddedNode",
	TypeICEServerPeerInformation:    "ICEServerPeerInformation",
	TypeICEServerQuery:              "ICEServerQuery",
	TypeOctreeStats:                 "OctreeStats",
	TypeNodeIgnoreRequest:           "NodeIgnoreRequest",
	TypeDomainConnectRequest:        "DomainConnectRequest",
	TypeDomainServerRequireDTLS:     "DomainServerRequireDTLS",
	TypeNodeJsonStats:               "NodeJsonStats",
	TypeEntityQuery:                 "EntityQuery",
	TypeEntityData:                  "EntityData",
	TypeEntityEdit:                  "EntityEdit",
	TypeDomainServerConnectionToken: "DomainServerConnectionToken",
	TypeDomainDisconnectRequest:     "DomainDisconnectRequest",
	TypeDomainServerRemovedNode:     "DomainServerRemovedNode",
	TypeMessagesData:                "MessagesData",
	TypeMessagesSubscribe:           "MessagesSubscribe",
	TypeMessagesUnsubscribe:         "MessagesUnsubscribe",
	TypeNodeKickRequest:             "NodeKickRequest",
	TypeNodeMuteRequest:             "NodeMuteRequest",
	TypeAvatarIdentity:              "AvatarIdentity",
	TypeAvatarQuery:                 "AvatarQuery",
}

func (t PacketType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PacketType(%d)", uint8(t))
}

// nonSourcedTypes lists the protocol types exchanged with the domain
// server itself, before or outside a node session: they carry no
// source ID or verification hash.
var nonSourcedTypes = map[PacketType]struct{}{
	TypeUnknown:                     {},
	TypeStunResponse:                {},
	TypeDomainList:                  {},
	TypeDomainListRequest:           {},
	TypeRequestAssignment:           {},
	TypeCreateAssignment:            {},
	TypeDomainConnectRequest:        {},
	TypeDomainConnectionDenied:      {},
	TypeDomainServerRequireDTLS:     {},
	TypeDomainServerPathQuery:       {},
	TypeDomainServerPathResponse:    {},
	TypeDomainServerAddedNode:       {},
	TypeDomainServerConnectionToken: {},
	TypeDomainDisconnectRequest:     {},
	TypeDomainServerRemovedNode:     {},
	TypeICEServerPeerInformation:    {},
	TypeICEServerQuery:              {},
}

// nonVerifiedTypes lists sourced types that skip the integrity hash.
var nonVerifiedTypes = map[PacketType]struct{}{
	TypeNodeJsonStats: {},
	TypePing:          {},
	TypePingReply:     {},
}

// Sourced reports whether packets of this type carry a sender
// session-local ID after the version byte.
func (t PacketType) Sourced() bool {
	_, nonSourced := nonSourcedTypes[t]
	return !nonSourced
}

// Verified reports whether packets of this type carry an integrity
// hash after the source ID.
func (t PacketType) Verified() bool {
	if !t.Sourced() {
		return false
	}
	_, nonVerified := nonVerifiedTypes[t]
	return !nonVerified
}

// DefaultVersion is the protocol version written for types without an
// explicit entry in the version table.
const DefaultVersion uint8 = 22

var typeVersions = map[PacketType]uint8{
	TypeDomainList:              24,
	TypeDomainConnectRequest:    24,
	TypeDomainListRequest:       24,
	TypeDomainConnectionDenied:  23,
	TypeAvatarData:              45,
	TypeBulkAvatarData:          45,
	TypeAvatarIdentity:          45,
	TypeKillAvatar:              45,
	TypeMixedAudio:              23,
	TypeMicrophoneAudioNoEcho:   23,
	TypeMicrophoneAudioWithEcho: 23,
	TypeSilentAudioFrame:        23,
}

// VersionForType returns the protocol version this client speaks for
// the given type.
func VersionForType(t PacketType) uint8 {
	if v, ok := typeVersions[t]; ok {
		return v
	}
	return DefaultVersion
}
