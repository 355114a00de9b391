package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryScan(ctx context.Context) (bool, error) {
	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}
	port, found := DetectResidentPort(ctx)
	if !found {
		return false, nil
	}
	conn, err := net.DialTimeout("tcp", residentAddr(port), deadline)
	if err != nil {
		return false, nil
	}
	return true, request(conn, CommandScan, deadline)
}

func request(conn net.Conn, cmd Command, timeout time.Duration) error {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(cmd) + "\n"); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return err
	}
	switch status {
	case successResponse:
		return nil
	case errorResponse:
		msg, _ := io.ReadAll(br)
		return errors.New(strings.TrimSpace(string(msg)))
	default:
		return errors.New("unexpected resident response: " + strings.TrimSpace(status))
	}
}
