package transcoder

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoaded          = errors.New("ffmpeg is not loaded")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrUnsupportedFS      = errors.New("unsupported filesystem type")
	ErrNotMounted         = errors.New("mount point not mounted")
	ErrBadAsset           = errors.New("invalid core asset")
	ErrExecFailed         = errors.New("ffmpeg exited with non-zero status")
	ErrTerminated         = fmt.Errorf("%w: ffmpeg was terminated", ErrNotLoaded)
)
