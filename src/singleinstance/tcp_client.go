package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

// A delegated session includes the user's selection, so the reply can take a while.
const defaultDialTimeout = 2 * time.Second

type tcpClient struct{}

func newTCPClient() Client { return &tcpClient{} }

func (c *tcpClient) TryRunOnce(ctx context.Context, mode Mode) (bool, string, error) {
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return false, "", nil
	}
	addr := residentAddr(port)
	log.Printf("singleinstance: resident found on %s, delegating %s", addr, mode)

	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, timeoutFrom(ctx, defaultDialTimeout))
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		return false, "", nil
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write([]byte(mode.String() + "\n")); err != nil {
		return true, "", fmt.Errorf("send request: %w", err)
	}
	return readResponse(bufio.NewReader(conn))
}

func readResponse(br *bufio.Reader) (bool, string, error) {
	status, err := br.ReadString('\n')
	if err != nil {
		return true, "", fmt.Errorf("read response: %w", err)
	}
	body, _ := io.ReadAll(br)
	msg := strings.TrimSpace(string(body))
	switch status {
	case successResponse:
		return true, msg, nil
	case cancelResponse:
		return true, "", ErrCancelled
	case errorResponse:
		if msg == "" {
			msg = "resident reported an unknown error"
		}
		return true, "", errors.New(msg)
	default:
		return true, "", fmt.Errorf("unexpected response %q", strings.TrimSpace(status))
	}
}
