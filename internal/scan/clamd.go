package scan

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
)

const instreamChunkSize = 32 * 1024

// ClamdScanner talks to a ClamAV daemon over its TCP INSTREAM protocol.
type ClamdScanner struct {
	addr        string
	dialTimeout time.Duration
}

// NewClamdScanner targets a clamd instance at addr (host:port).
func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr, dialTimeout: 5 * time.Second}
}

// Scan streams the file at path to clamd. A connection failure means the
// scanner is unavailable and yields a skipped result, not an error; errors
// are reserved for transport failures after a scan has started.
func (s *ClamdScanner) Scan(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open scan target: %w", err)
	}
	defer f.Close()

	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return Result{Available: false}, nil
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return Result{}, fmt.Errorf("clamd handshake: %w", err)
	}
	buf := make([]byte, instreamChunkSize)
	var chunkLen [4]byte
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			binary.BigEndian.PutUint32(chunkLen[:], uint32(n))
			if _, err := conn.Write(chunkLen[:]); err != nil {
				return Result{}, fmt.Errorf("clamd stream: %w", err)
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return Result{}, fmt.Errorf("clamd stream: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("read scan target: %w", readErr)
		}
	}
	// Zero-length chunk terminates the stream.
	binary.BigEndian.PutUint32(chunkLen[:], 0)
	if _, err := conn.Write(chunkLen[:]); err != nil {
		return Result{}, fmt.Errorf("clamd stream: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\x00')
	if err != nil && err != io.EOF {
		return Result{}, fmt.Errorf("clamd reply: %w", err)
	}
	return parseReply(reply)
}

func parseReply(reply string) (Result, error) {
	reply = strings.TrimSuffix(strings.TrimSpace(reply), "\x00")
	switch {
	case strings.HasSuffix(reply, "OK"):
		return Result{Available: true}, nil
	case strings.HasSuffix(reply, "FOUND"):
		sig := strings.TrimSuffix(reply, " FOUND")
		if i := strings.Index(sig, ": "); i >= 0 {
			sig = sig[i+2:]
		}
		return Result{Available: true, Infected: true, Signatures: []string{sig}}, nil
	default:
		return Result{}, fmt.Errorf("unexpected clamd reply: %q", reply)
	}
}
