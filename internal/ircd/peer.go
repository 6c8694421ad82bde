package ircd

// PeerNode is a node in the spanning tree of servers. The federation is
// rooted at "this server": each Peers entry is a directly connected
// peer, and that peer's own Peers hold whatever its subtree has told us
// about, recursively. The tree must never contain a cycle.
type PeerNode struct {
	Name  string
	Peers []*PeerNode

	// Link is set only on the direct children of the local server's root
	// node, the peers we actually hold a socket to. Nodes deeper in the
	// tree are known only by name, learned from gossip.
	Link *LocalServer
}

// NewPeerNode creates a named, childless node.
func NewPeerNode(name string) *PeerNode {
	return &PeerNode{Name: name}
}

// Find returns the node named name within p's subtree (p included), or
// nil if it is not reachable from here.
func (p *PeerNode) Find(name string) *PeerNode {
	if p.Name == name {
		return p
	}
	for _, child := range p.Peers {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// IsConnectedTo reports whether name is reachable anywhere in p's
// subtree, p itself excluded; at the root this answers "is name
// anywhere in the federation".
func (p *PeerNode) IsConnectedTo(name string) bool {
	for _, child := range p.Peers {
		if child.Name == name || child.IsConnectedTo(name) {
			return true
		}
	}
	return false
}

// Attach adds child as an immediate peer of p.
func (p *PeerNode) Attach(child *PeerNode) {
	p.Peers = append(p.Peers, child)
}

// Detach removes the immediate child named name, returning it, or nil if
// no such immediate child exists.
func (p *PeerNode) Detach(name string) *PeerNode {
	for i, child := range p.Peers {
		if child.Name == name {
			p.Peers = append(p.Peers[:i:i], p.Peers[i+1:]...)
			return child
		}
	}
	return nil
}

// Names returns name and the name of every node in its subtree, used to
// identify which users a SQUIT'd subtree owns.
func (p *PeerNode) Names() []string {
	names := []string{p.Name}
	for _, child := range p.Peers {
		names = append(names, child.Names()...)
	}
	return names
}

// RouteTo picks the immediate peer whose subtree contains dest
// (including the peer itself). It returns
// nil if no immediate peer leads there.
func (p *PeerNode) RouteTo(dest string) *PeerNode {
	for _, child := range p.Peers {
		if child.Name == dest || child.IsConnectedTo(dest) {
			return child
		}
	}
	return nil
}
