package transcoder

import (
	"context"
	"fmt"
	"time"
)

// MessageType names a request or event exchanged with an ffmpeg core.
type MessageType string

const (
	MessageLoad       MessageType = "LOAD"
	MessageExec       MessageType = "EXEC"
	MessageWriteFile  MessageType = "WRITE_FILE"
	MessageReadFile   MessageType = "READ_FILE"
	MessageDeleteFile MessageType = "DELETE_FILE"
	MessageRename     MessageType = "RENAME"
	MessageCreateDir  MessageType = "CREATE_DIR"
	MessageListDir    MessageType = "LIST_DIR"
	MessageDeleteDir  MessageType = "DELETE_DIR"
	MessageMount      MessageType = "MOUNT"
	MessageUnmount    MessageType = "UNMOUNT"

	MessageError    MessageType = "ERROR"
	MessageDownload MessageType = "DOWNLOAD"
	MessageProgress MessageType = "PROGRESS"
	MessageLog      MessageType = "LOG"
)

// FSType is a filesystem kind accepted by Mount.
type FSType string

const (
	FSMemory  FSType = "MEMFS"
	FSNode    FSType = "NODEFS"
	FSNodeRaw FSType = "NODERAWFS"
	FSIDB     FSType = "IDBFS"
	FSWorker  FSType = "WORKERFS"
	FSProxy   FSType = "PROXYFS"
)

// LoadConfig tells an engine where its core artifacts live.
type LoadConfig struct {
	Assets Assets
}

// Node is a directory entry returned by ListDir.
type Node struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
}

// MountOptions carries the host side of a mount.
type MountOptions struct {
	Root string `json:"root"`
}

// Engine is an ffmpeg core. Every method except Load and Terminate fails with
// ErrNotLoaded until Load has succeeded.
type Engine interface {
	// Load boots the core. first reports whether this call did the work.
	Load(ctx context.Context, cfg LoadConfig) (first bool, err error)
	// Exec runs ffmpeg with args and returns its exit code. A zero timeout
	// means no limit.
	Exec(ctx context.Context, args []string, timeout time.Duration) (int, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	DeleteFile(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	CreateDir(ctx context.Context, path string) error
	ListDir(ctx context.Context, path string) ([]Node, error)
	DeleteDir(ctx context.Context, path string) error
	Mount(ctx context.Context, fsType FSType, opts MountOptions, mountPoint string) error
	Unmount(ctx context.Context, mountPoint string) error
	Terminate() error
}

// Message is one request to, or reply from, an engine. Replies keep the
// request ID; failures come back as MessageError with Err set.
type Message struct {
	ID   int         `json:"id"`
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
	Err  string      `json:"error,omitempty"`
}

// Request payloads for Dispatch.
type (
	ExecData struct {
		Args    []string
		Timeout time.Duration
	}
	FileData struct {
		Path string
		Data []byte
	}
	RenameData struct {
		OldPath string
		NewPath string
	}
	MountData struct {
		FSType     FSType
		Options    MountOptions
		MountPoint string
	}
)

// Dispatch routes a request message to the matching Engine method and wraps
// the result in a reply carrying the same ID.
func Dispatch(ctx context.Context, e Engine, msg Message) Message {
	data, err := dispatch(ctx, e, msg)
	if err != nil {
		return Message{ID: msg.ID, Type: MessageError, Err: err.Error()}
	}
	return Message{ID: msg.ID, Type: msg.Type, Data: data}
}

func dispatch(ctx context.Context, e Engine, msg Message) (any, error) {
	switch msg.Type {
	case MessageLoad:
		cfg, err := payload[LoadConfig](msg)
		if err != nil {
			return nil, err
		}
		return e.Load(ctx, cfg)
	case MessageExec:
		d, err := payload[ExecData](msg)
		if err != nil {
			return nil, err
		}
		return e.Exec(ctx, d.Args, d.Timeout)
	case MessageWriteFile:
		d, err := payload[FileData](msg)
		if err != nil {
			return nil, err
		}
		return true, e.WriteFile(ctx, d.Path, d.Data)
	case MessageReadFile:
		d, err := payload[FileData](msg)
		if err != nil {
			return nil, err
		}
		return e.ReadFile(ctx, d.Path)
	case MessageDeleteFile:
		d, err := payload[FileData](msg)
		if err != nil {
			return nil, err
		}
		return true, e.DeleteFile(ctx, d.Path)
	case MessageRename:
		d, err := payload[RenameData](msg)
		if err != nil {
			return nil, err
		}
		return true, e.Rename(ctx, d.OldPath, d.NewPath)
	case MessageCreateDir:
		d, err := payload[FileData](msg)
		if err != nil {
			return nil, err
		}
		return true, e.CreateDir(ctx, d.Path)
	case MessageListDir:
		d, err := payload[FileData](msg)
		if err != nil {
			return nil, err
		}
		return e.ListDir(ctx, d.Path)
	case MessageDeleteDir:
		d, err := payload[FileData](msg)
		if err != nil {
			return nil, err
		}
		return true, e.DeleteDir(ctx, d.Path)
	case MessageMount:
		d, err := payload[MountData](msg)
		if err != nil {
			return nil, err
		}
		return true, e.Mount(ctx, d.FSType, d.Options, d.MountPoint)
	case MessageUnmount:
		d, err := payload[FileData](msg)
		if err != nil {
			return nil, err
		}
		return true, e.Unmount(ctx, d.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}
}

func payload[T any](msg Message) (T, error) {
	switch d := msg.Data.(type) {
	case T:
		return d, nil
	case *T:
		if d != nil {
			return *d, nil
		}
	case nil:
		var zero T
		return zero, nil
	}
	var zero T
	return zero, fmt.Errorf("%s: unexpected payload %T", msg.Type, msg.Data)
}
