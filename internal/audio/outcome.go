package audio

import "errors"

var (
	ErrAsset  = errors.New("audio asset unreadable")
	ErrDevice = errors.New("audio device failure")
)

type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the result of one playback request, including all retries.
type Outcome struct {
	Status   Status
	Attempts int
	Err      error
}

func (o Outcome) Ok() bool { return o.Status == StatusSuccess }
