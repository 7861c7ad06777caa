package event

// RoundEnded fires when every player in the round has died or the round was
// ended by an operator. Listeners reset round-scoped state.
type RoundEnded struct {
	Round  int
	Reason string
}
