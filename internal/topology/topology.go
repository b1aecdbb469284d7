package topology

import (
	"errors"
	"fmt"
	"sort"
)

// Server describes one member of the herd.
type Server struct {
	Address string   `yaml:"address"` // host:port the server listens on
	Peers   []string `yaml:"peers"`   // ids of directly reachable servers
}

// Topology is the immutable peer graph of the herd.
type Topology struct {
	servers map[string]Server
}

// New validates the server table and returns a Topology.
func New(servers map[string]Server) (*Topology, error) {
	if len(servers) == 0 {
		return nil, errors.New("herd has no servers")
	}

	copied := make(map[string]Server, len(servers))
	for id, srv := range servers {
		if srv.Address == "" {
			return nil, fmt.Errorf("server %s has no address", id)
		}
		seen := make(map[string]struct{}, len(srv.Peers))
		for _, peer := range srv.Peers {
			if peer == id {
				return nil, fmt.Errorf("server %s lists itself as a peer", id)
			}
			if _, ok := servers[peer]; !ok {
				return nil, fmt.Errorf("server %s lists unknown peer %s", id, peer)
			}
			if _, dup := seen[peer]; dup {
				return nil, fmt.Errorf("server %s lists peer %s twice", id, peer)
			}
			seen[peer] = struct{}{}
		}
		copied[id] = Server{
			Address: srv.Address,
			Peers:   append([]string(nil), srv.Peers...),
		}
	}

	return &Topology{servers: copied}, nil
}

// Has reports whether id names a herd member.
func (t *Topology) Has(id string) bool {
	_, ok := t.servers[id]
	return ok
}

// Address returns the network address of a herd member.
func (t *Topology) Address(id string) (string, bool) {
	srv, ok := t.servers[id]
	return srv.Address, ok
}

// Peers returns the ids directly reachable from id.
func (t *Topology) Peers(id string) []string {
	return append([]string(nil), t.servers[id].Peers...)
}

// IDs returns every server id in sorted order.
func (t *Topology) IDs() []string {
	ids := make([]string, 0, len(t.servers))
	for id := range t.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Asymmetric returns "a->b" for every edge whose reverse is missing.
func (t *Topology) Asymmetric() []string {
	var edges []string
	for _, id := range t.IDs() {
		for _, peer := range t.servers[id].Peers {
			if !contains(t.servers[peer].Peers, id) {
				edges = append(edges, id+"->"+peer)
			}
		}
	}
	return edges
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
