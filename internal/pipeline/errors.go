package pipeline

import "errors"

// Kind classifies why a request failed.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindMetadata
	KindGeneration
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindMetadata:
		return "metadata"
	case KindGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

var (
	ErrMissingGenerationKey = errors.New("CLAUDE_API_KEY environment variable not set")
	ErrMissingMetadataKey   = errors.New("ETHERSCAN_API_KEY environment variable not set")
)

// Error is a failed request tagged with the stage that failed. Its text is
// the diagnostic returned to the caller.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMetadata:
		return "Error fetching ABI: " + e.Err.Error()
	case KindGeneration:
		return "Error: " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 when err did not come from a pipeline.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}
