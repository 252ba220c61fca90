package protocol

// Dispatcher routes decoded messages to per-tag handlers. A nil handler ignores its
// tag, and unknown tags are ignored so newer peers can talk to older ones.
type Dispatcher struct {
	Welcome       func(from string, m Welcome)
	StateSnapshot func(from string, m StateSnapshot)
	GameOver      func(from string, m GameOver)
	PlayerAction  func(from string, m PlayerAction)
	PeerLeft      func(from string, m PeerLeft)
}

// Dispatch decodes data and calls the matching handler. It returns an error only for
// malformed messages; callers log and drop those.
func (d *Dispatcher) Dispatch(from string, data []byte) error {
	env, err := Decode(data)
	if err != nil {
		return err
	}

	switch env.Tag {
	case TagWelcome:
		return dispatch(env, from, d.Welcome)
	case TagStateSnapshot:
		return dispatch(env, from, d.StateSnapshot)
	case TagGameOver:
		return dispatch(env, from, d.GameOver)
	case TagPlayerAction:
		return dispatch(env, from, d.PlayerAction)
	case TagPeerLeft:
		return dispatch(env, from, d.PeerLeft)
	default:
		return nil
	}
}

func dispatch[T any](env Envelope, from string, handler func(string, T)) error {
	if handler == nil {
		return nil
	}
	m, err := DecodePayload[T](env)
	if err != nil {
		return err
	}
	handler(from, m)
	return nil
}
