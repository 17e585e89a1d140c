package message

// NewExceptionResponse builds an Exception response carrying text as its payload
// and answering the request with the given id.
func NewExceptionResponse(text string, id int64) Message {
	return NewWithID([]byte(text), nil, Exception, id)
}

// NewErrorResponse is NewExceptionResponse using err's description.
func NewErrorResponse(err error, id int64) Message {
	return NewExceptionResponse(err.Error(), id)
}

// RemoteError returns the failure carried by an Exception message, or nil for any
// other type.
func (m *Message) RemoteError() error {
	if m.typ != Exception {
		return nil
	}
	return &RemoteError{ID: m.ID(), Text: string(m.payload)}
}
