package ctl

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/wire"
)

// Client sends one control command per call and waits for its
// response; shardctl dials fresh for every invocation rather than
// holding a persistent connection, since CLI invocations are one-shot
// processes.
type Client struct {
	Addr    string
	Timeout time.Duration
}

func NewClient(addr string) *Client {
	return &Client{Addr: addr, Timeout: 10 * time.Second}
}

// Call sends req and returns the decoded response.
func (c *Client) Call(req cmn.SimpleKVs) (cmn.SimpleKVs, error) {
	conn, err := net.DialTimeout("tcp", c.Addr, c.Timeout)
	if err != nil {
		return nil, cmn.WrapError(cmn.ErrStorageFailure, "ctl: connect to "+c.Addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.Timeout))

	frame, err := wire.Encode(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(frame); err != nil {
		return nil, cmn.WrapError(cmn.ErrStorageFailure, "ctl: send request", err)
	}

	r := bufio.NewReader(conn)
	header := make([]byte, wire.HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, cmn.WrapError(cmn.ErrStorageFailure, "ctl: read response header", err)
	}
	payload := make([]byte, wire.SplitHeader(header))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, cmn.WrapError(cmn.ErrStorageFailure, "ctl: read response payload", err)
	}
	return wire.Decode(payload)
}
