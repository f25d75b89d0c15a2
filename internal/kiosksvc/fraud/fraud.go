package fraud

// Evaluate reports whether a closed journey should be flagged: the rider
// exited somewhere other than the destination they declared at tap-in.
// Fraud suspicion is a recorded fact, not an error.
func Evaluate(selectedDestination, actualDestination int) bool {
	return selectedDestination != actualDestination
}
