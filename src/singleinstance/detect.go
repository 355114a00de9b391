package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

const probeTimeout = 300 * time.Millisecond

// DetectResidentPort returns the first port in the configured range whose
// listener answers PING with PONG. It gives up when ctx is done.
func DetectResidentPort(ctx context.Context) (int, bool) {
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if ping(residentAddr(port), probeBudget(ctx)) {
			return port, true
		}
	}
	return 0, false
}

func residentAddr(port int) string {
	return net.JoinHostPort(residentHost, strconv.Itoa(port))
}

// probeBudget caps a single probe by the time ctx has left.
func probeBudget(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < probeTimeout {
			return left
		}
	}
	return probeTimeout
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
