package core

import (
	"github.com/google/uuid"
	"github.com/rs/xid"

	"pkt.systems/codecanvas/schema"
)

func newFileID() schema.FileID {
	return schema.FileID(uuid.NewString())
}

func newSessionID() schema.SessionID {
	return schema.SessionID(xid.New().String())
}
