package scan

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
)

// fakeClamd accepts one INSTREAM session and answers with reply.
func fakeClamd(t *testing.T, reply string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		if _, err := r.ReadString('\x00'); err != nil {
			return
		}
		for {
			var chunkLen [4]byte
			if _, err := io.ReadFull(r, chunkLen[:]); err != nil {
				return
			}
			n := binary.BigEndian.Uint32(chunkLen[:])
			if n == 0 {
				break
			}
			if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
				return
			}
		}
		_, _ = conn.Write([]byte(reply))
	}()
	return ln.Addr().String()
}

func scanTarget(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload")
	if err := os.WriteFile(path, []byte("some uploaded bytes"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	return path
}

func TestClamdScanClean(t *testing.T) {
	addr := fakeClamd(t, "stream: OK\x00")
	res, err := NewClamdScanner(addr).Scan(context.Background(), scanTarget(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !res.Available || res.Infected {
		t.Fatalf("expected available clean result, got %+v", res)
	}
}

func TestClamdScanInfected(t *testing.T) {
	addr := fakeClamd(t, "stream: Eicar-Test-Signature FOUND\x00")
	res, err := NewClamdScanner(addr).Scan(context.Background(), scanTarget(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !res.Available || !res.Infected {
		t.Fatalf("expected infected result, got %+v", res)
	}
	if len(res.Signatures) != 1 || res.Signatures[0] != "Eicar-Test-Signature" {
		t.Fatalf("unexpected signatures: %v", res.Signatures)
	}
}

func TestClamdUnreachableIsSkippedNotError(t *testing.T) {
	// Grab a port and close it again so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	res, err := NewClamdScanner(addr).Scan(context.Background(), scanTarget(t))
	if err != nil {
		t.Fatalf("expected skipped result, got error: %v", err)
	}
	if res.Available {
		t.Fatalf("expected unavailable result, got %+v", res)
	}
}

func TestDisabledScannerAlwaysSkips(t *testing.T) {
	res, err := Disabled{}.Scan(context.Background(), "ignored")
	if err != nil || res.Available || res.Infected {
		t.Fatalf("unexpected disabled result: %+v err=%v", res, err)
	}
}
