// Package nodes tracks the peer services known to the client: the
// assignment-client mixers a domain reports on its roster, their
// identities, sockets and permissions, and the client's own session
// identity.
package nodes

import "fmt"

// NodeType is the protocol-assigned service type character.
type NodeType byte

const (
	NodeTypeDomainServer       NodeType = 'D'
	NodeTypeEntityServer       NodeType = 'o'
	NodeTypeAgent              NodeType = 'I'
	NodeTypeAudioMixer         NodeType = 'M'
	NodeTypeAvatarMixer        NodeType = 'W'
	NodeTypeAssetServer        NodeType = 'A'
	NodeTypeMessagesMixer      NodeType = 'm'
	NodeTypeEntityScriptServer NodeType = 'S'
	NodeTypeUnassigned         NodeType = 1
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeDomainServer:       "DomainServer",
	NodeTypeEntityServer:       "EntityServer",
	NodeTypeAgent:              "Agent",
	NodeTypeAudioMixer:         "AudioMixer",
	NodeTypeAvatarMixer:        "AvatarMixer",
	NodeTypeAssetServer:        "AssetServer",
	NodeTypeMessagesMixer:      "MessagesMixer",
	NodeTypeEntityScriptServer: "EntityScriptServer",
	NodeTypeUnassigned:         "Unassigned",
}

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%c)", byte(t))
}

// NodeTypeFromName maps a roster/config name ("audio-mixer") to its
// type character. Unknown names return NodeTypeUnassigned.
func NodeTypeFromName(name string) NodeType {
	switch name {
	case "domain-server":
		return NodeTypeDomainServer
	case "entity-server":
		return NodeTypeEntityServer
	case "agent":
		return NodeTypeAgent
	case "audio-mixer":
		return NodeTypeAudioMixer
	case "avatar-mixer":
		return NodeTypeAvatarMixer
	case "asset-server":
		return NodeTypeAssetServer
	case "messages-mixer":
		return NodeTypeMessagesMixer
	case "entity-script-server":
		return NodeTypeEntityScriptServer
	}
	return NodeTypeUnassigned
}

// soloNodeTypes have at most one instance per domain.
var soloNodeTypes = map[NodeType]struct{}{
	NodeTypeAudioMixer:    {},
	NodeTypeAvatarMixer:   {},
	NodeTypeAssetServer:   {},
	NodeTypeMessagesMixer: {},
}

// IsSolo reports whether a domain runs at most one node of this type.
func (t NodeType) IsSolo() bool {
	_, ok := soloNodeTypes[t]
	return ok
}
