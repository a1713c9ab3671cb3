// Package ice hands newly connected clients the connectivity config
// their WebRTC stack needs. Credentials are provisioned externally;
// the hub only forwards what it was configured with.
package ice

import "github.com/pion/webrtc/v4"

type Provider interface {
	Servers() []webrtc.ICEServer
}

// StaticProvider serves a fixed server list from config.
type StaticProvider struct {
	servers []webrtc.ICEServer
}

func NewStaticProvider(servers []webrtc.ICEServer) *StaticProvider {
	if len(servers) == 0 {
		servers = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	return &StaticProvider{servers: servers}
}

func (p *StaticProvider) Servers() []webrtc.ICEServer { return p.servers }
