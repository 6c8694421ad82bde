package ircd

// LocalServer holds the connection-carrying half of a directly linked
// peer, the federation counterpart to LocalClient.
type LocalServer struct {
	ID        uint64
	TraceID   string
	Name      string
	Conn      Conn
	WriteChan chan string

	sendQueueExceeded bool
}

// maybeQueueMessage enqueues line for writing to this peer without
// blocking, matching LocalClient's overflow behaviour.
func (s *LocalServer) maybeQueueMessage(line string) {
	if s.sendQueueExceeded {
		return
	}
	select {
	case s.WriteChan <- line:
	default:
		s.sendQueueExceeded = true
	}
}
