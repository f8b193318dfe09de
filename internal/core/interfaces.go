package core

// Frame is a raw wire payload, already marshaled.
type Frame []byte

// SessionID identifies one connected participant for the lifetime of its
// transport connection.
type SessionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ParticipantSession is what the registry stores and the hub fans out to.
type ParticipantSession interface {
	Signal() SignalConnection
}

type participantSession struct {
	conn SignalConnection
}

func NewParticipantSession(conn SignalConnection) ParticipantSession {
	return &participantSession{conn: conn}
}

func (p *participantSession) Signal() SignalConnection { return p.conn }
