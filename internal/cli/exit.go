package cli

// ExitError carries an exit code from a command whose work completed but
// whose outcome demands a non-zero exit, such as an apply whose dispatch
// reported failures. main unwraps it with errors.As.
type ExitError struct {
	ExitCode int
	Reason   string
}

func (e *ExitError) Error() string {
	return e.Reason
}
