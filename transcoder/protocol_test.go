package transcoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	reply := Dispatch(ctx, e, Message{ID: 1, Type: MessageWriteFile, Data: FileData{Path: "/a", Data: []byte("a")}})
	assert.Equal(t, MessageError, reply.Type)
	assert.Equal(t, 1, reply.ID)
	assert.Contains(t, reply.Err, ErrNotLoaded.Error())

	reply = Dispatch(ctx, e, Message{ID: 2, Type: MessageLoad, Data: LoadConfig{Assets: DefaultAssets()}})
	require.Equal(t, MessageLoad, reply.Type, reply.Err)
	assert.Equal(t, true, reply.Data)

	reply = Dispatch(ctx, e, Message{ID: 3, Type: MessageLoad})
	require.Equal(t, MessageLoad, reply.Type, reply.Err)
	assert.Equal(t, false, reply.Data)

	reply = Dispatch(ctx, e, Message{ID: 4, Type: MessageCreateDir, Data: &FileData{Path: "/d"}})
	require.Equal(t, MessageCreateDir, reply.Type, reply.Err)

	reply = Dispatch(ctx, e, Message{ID: 5, Type: MessageWriteFile, Data: FileData{Path: "/d/a", Data: []byte("a")}})
	require.Equal(t, MessageWriteFile, reply.Type, reply.Err)

	reply = Dispatch(ctx, e, Message{ID: 6, Type: MessageRename, Data: RenameData{OldPath: "/d/a", NewPath: "/d/b"}})
	require.Equal(t, MessageRename, reply.Type, reply.Err)

	reply = Dispatch(ctx, e, Message{ID: 7, Type: MessageListDir, Data: FileData{Path: "/d"}})
	require.Equal(t, MessageListDir, reply.Type, reply.Err)
	assert.Equal(t, []Node{{Name: "b"}}, reply.Data)

	reply = Dispatch(ctx, e, Message{ID: 8, Type: MessageReadFile, Data: FileData{Path: "/d/b"}})
	require.Equal(t, MessageReadFile, reply.Type, reply.Err)
	assert.Equal(t, []byte("a"), reply.Data)

	reply = Dispatch(ctx, e, Message{ID: 9, Type: MessageDeleteFile, Data: FileData{Path: "/d/b"}})
	require.Equal(t, MessageDeleteFile, reply.Type, reply.Err)

	reply = Dispatch(ctx, e, Message{ID: 10, Type: MessageDeleteDir, Data: FileData{Path: "/d"}})
	require.Equal(t, MessageDeleteDir, reply.Type, reply.Err)

	reply = Dispatch(ctx, e, Message{ID: 11, Type: MessageMount, Data: MountData{FSType: FSIDB, MountPoint: "/idb"}})
	assert.Equal(t, MessageError, reply.Type)
	assert.Contains(t, reply.Err, ErrUnsupportedFS.Error())

	reply = Dispatch(ctx, e, Message{ID: 12, Type: MessageUnmount, Data: FileData{Path: "/idb"}})
	assert.Equal(t, MessageError, reply.Type)
	assert.Contains(t, reply.Err, ErrNotMounted.Error())
}

func TestDispatch_BadMessages(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	reply := Dispatch(ctx, e, Message{ID: 1, Type: MessageProgress})
	assert.Equal(t, MessageError, reply.Type)
	assert.Contains(t, reply.Err, ErrUnknownMessageType.Error())

	reply = Dispatch(ctx, e, Message{ID: 2, Type: MessageExec, Data: "ffmpeg -version"})
	assert.Equal(t, MessageError, reply.Type)
	assert.Contains(t, reply.Err, "unexpected payload string")
}
