package scanner

// TestCase is one (parameter, payload) pair to probe. Submission order is
// the order of the payload source.
type TestCase struct {
	Parameter string
	Payload   string
}
