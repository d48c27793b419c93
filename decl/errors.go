package decl

// ParseError is returned for malformed declaration input. It is fatal to the
// compiler run: no declarations are produced for the failing source.
type ParseError struct {
	Message string
	Pos     Pos
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Message == "" {
		return e.Pos.String() + ": parse error"
	}
	return e.Pos.String() + ": " + e.Message
}
