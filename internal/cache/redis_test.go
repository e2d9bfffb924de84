package cache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// respServer speaks just enough RESP2 for RedisStore: GET, SET, SCAN,
// UNLINK and PING. Anything else gets an error reply.
type respServer struct {
	ln net.Listener

	mu   sync.Mutex
	data map[string]string
	sets [][]string
}

func newRESPServer(t *testing.T) *respServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &respServer{ln: ln, data: make(map[string]string)}
	go srv.serve()
	t.Cleanup(func() { ln.Close() })
	return srv
}

func (s *respServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *respServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		s.reply(w, args)
		if err := w.Flush(); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected line %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}
	args := make([]string, n)
	for i := range args {
		hdr, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(hdr[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args[i] = string(buf[:size])
	}
	return args, nil
}

func (s *respServer) reply(w *bufio.Writer, args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch strings.ToUpper(args[0]) {
	case "PING":
		w.WriteString("+PONG\r\n")
	case "GET":
		v, ok := s.data[args[1]]
		if !ok {
			w.WriteString("$-1\r\n")
			return
		}
		writeBulk(w, v)
	case "SET":
		s.data[args[1]] = args[2]
		s.sets = append(s.sets, args)
		w.WriteString("+OK\r\n")
	case "SCAN":
		pattern := "*"
		for i := 2; i+1 < len(args); i += 2 {
			if strings.EqualFold(args[i], "MATCH") {
				pattern = args[i+1]
			}
		}
		var keys []string
		for k := range s.data {
			if ok, _ := path.Match(pattern, k); ok {
				keys = append(keys, k)
			}
		}
		w.WriteString("*2\r\n")
		writeBulk(w, "0")
		fmt.Fprintf(w, "*%d\r\n", len(keys))
		for _, k := range keys {
			writeBulk(w, k)
		}
	case "UNLINK", "DEL":
		removed := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				removed++
			}
		}
		fmt.Fprintf(w, ":%d\r\n", removed)
	default:
		fmt.Fprintf(w, "-ERR unknown command '%s'\r\n", args[0])
	}
}

func writeBulk(w *bufio.Writer, v string) {
	fmt.Fprintf(w, "$%d\r\n%s\r\n", len(v), v)
}

func (s *respServer) put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *respServer) keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func newTestRedisStore(t *testing.T, srv *respServer, ttl time.Duration) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:            srv.ln.Addr().String(),
		Protocol:        2,
		DisableIdentity: true,
	})
	t.Cleanup(func() { client.Close() })
	return newRedisStore(client, "breadth", ttl)
}

func TestRedisStore_PutGetFlush(t *testing.T) {
	srv := newRESPServer(t)
	s := newTestRedisStore(t, srv, time.Hour)
	s.now = func() time.Time { return t0.Add(time.Minute) }
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "BTC", 5); ok || err != nil {
		t.Fatalf("expected miss on empty store, got %v %v", ok, err)
	}
	if err := s.Put(ctx, NewEntry("BTC", rows(5), 5, t0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, NewEntry("ETH", rows(5), 5, t0)); err != nil {
		t.Fatal(err)
	}

	srv.mu.Lock()
	set := srv.sets[0]
	srv.mu.Unlock()
	if set[1] != "breadth:series:BTC" || len(set) < 5 || !strings.EqualFold(set[3], "ex") || set[4] != "3600" {
		t.Errorf("expected SET with a one hour expiry, got %q", set)
	}

	e, ok, err := s.Get(ctx, "BTC", 5)
	if err != nil || !ok {
		t.Fatalf("expected hit, got %v %v", ok, err)
	}
	if len(e.Rows) != 5 || e.Rows[4].Close != 14 || !e.FetchedAt.Equal(t0) {
		t.Errorf("unexpected entry %+v", e)
	}
	if _, ok, _ := s.Get(ctx, "BTC", 6); ok {
		t.Error("an entry shorter than the request should miss")
	}

	srv.put("other:key", "x")
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "BTC", 5); ok {
		t.Error("expected miss after flush")
	}
	if n := srv.keys(); n != 1 {
		t.Errorf("flush should only drop series keys, %d keys left", n)
	}
}

func TestRedisStore_StaleEntryIsMiss(t *testing.T) {
	srv := newRESPServer(t)
	s := newTestRedisStore(t, srv, time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, NewEntry("BTC", rows(5), 5, t0)); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return t0.Add(59 * time.Minute) }
	if _, ok, _ := s.Get(ctx, "BTC", 5); !ok {
		t.Error("expected hit inside the ttl")
	}
	s.now = func() time.Time { return t0.Add(time.Hour) }
	if _, ok, err := s.Get(ctx, "BTC", 5); ok || err != nil {
		t.Errorf("expected silent miss once the ttl has passed, got %v %v", ok, err)
	}
}

func TestRedisStore_CorruptEntryIsMiss(t *testing.T) {
	srv := newRESPServer(t)
	s := newTestRedisStore(t, srv, time.Hour)

	srv.put("breadth:series:BAD", "{not json")
	if _, ok, err := s.Get(context.Background(), "BAD", 5); ok || err != nil {
		t.Errorf("expected silent miss, got %v %v", ok, err)
	}
}

func TestRedisStore_ServerDownIsError(t *testing.T) {
	srv := newRESPServer(t)
	s := newTestRedisStore(t, srv, time.Hour)
	srv.ln.Close()

	if _, _, err := s.Get(context.Background(), "BTC", 5); err == nil {
		t.Error("expected an error when the server is unreachable")
	}
}
