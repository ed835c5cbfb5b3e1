package verification

// Kind classifies the result of one remote call.
type Kind string

const (
	KindSuccess          Kind = "success"
	KindRejected         Kind = "rejected"
	KindTransportFailure Kind = "transport_failure"
)

// Outcome is the normalised result of a remote call. The client never returns
// raw transport or parse errors; they all end up here.
type Outcome struct {
	Kind    Kind
	Message string
	// Err is the underlying cause of a transport failure, for logs only.
	Err error
}

func Success(message string) Outcome {
	return Outcome{Kind: KindSuccess, Message: message}
}

func Rejected(message string) Outcome {
	return Outcome{Kind: KindRejected, Message: message}
}

func TransportFailure(err error) Outcome {
	o := Outcome{Kind: KindTransportFailure, Err: err}
	if err != nil {
		o.Message = err.Error()
	}
	return o
}

// OK reports whether the remote side accepted the call.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}
