package monitor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// VMStats is the snapshot served to monitor clients.
type VMStats struct {
	Tracked    int
	Pinned     int
	Evictions  uint64
	FreeFrames int
}

// StatsSource produces the snapshot, typically the VM engine.
type StatsSource interface {
	VMStats() VMStats
}

// Server is a debug surface over the frame subsystem: it answers stats
// queries over TCP and nothing more. It is not part of the allocator's
// contract.
type Server struct {
	addr     string
	listener net.Listener

	source StatsSource

	shutdown     chan struct{}
	shutdownOnce *sync.Once
}

func NewServer(addr string, source StatsSource) (*Server, error) {

	listener, err := net.Listen("tcp", addr)

	if err != nil {
		return nil, err
	}

	return &Server{
		addr:         addr,
		listener:     listener,
		source:       source,
		shutdown:     make(chan struct{}),
		shutdownOnce: &sync.Once{},
	}, nil
}

// Addr returns the address the server is listening on.
func (server *Server) Addr() net.Addr {
	return server.listener.Addr()
}

func handleShutdown(conn net.Conn) {

	message := encodeShutdownMessage()

	if _, err := conn.Write(message); err != nil {
		slog.Error(err.Error(), "msg", "error while sending shutdown message")
	}

	if err := conn.Close(); err != nil {
		slog.Error(err.Error(), "msg", "error while closing connection")
	}
}

func sendErrorResponse(conn net.Conn, err error, message string) {

	slog.Error(err.Error(), "msg", message)
	response := encodeErrorResponse(err)

	if _, err2 := conn.Write(response); err2 != nil {
		slog.Error(err2.Error(), "msg", "error while writing to connection")
	}
}

// errClientGone ends a client loop whose connection is closed.
var errClientGone = errors.New("client connection closed")

func (server *Server) handleRequest(conn net.Conn) error {

	request, err := readRequest(conn)

	// check for read timeout error
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return errClientGone
	}

	if err != nil {
		sendErrorResponse(conn, err, "error while reading request")
		return nil
	}

	switch request.opCode {

	// handle PING request
	case "P":

		if _, err := conn.Write(encodeOKResponse()); err != nil {
			slog.Error(err.Error(), "msg", "error while sending OK response")
		}

	// handle STATS request
	case "T":

		stats := server.source.VMStats()

		if _, err := conn.Write(encodeStatsResponse(stats)); err != nil {
			slog.Error(err.Error(), "msg", "error while sending stats response")
		}

	// handle CLOSE request
	case "C":

		if _, err := conn.Write(encodeOKResponse()); err != nil {
			slog.Error(err.Error(), "msg", "error while writing to conn")
		}

		if err := conn.Close(); err != nil {
			slog.Error(err.Error(), "msg", "error while closing connection")
		}

		return errClientGone

	// handle SHUTDOWN request
	case "S":

		slog.Info("monitor received shut down message")
		server.Shutdown()

	default:

		sendErrorResponse(conn, fmt.Errorf("invalid op code"), "invalid op code")
	}

	return nil
}

func (server *Server) handleClient(conn net.Conn, wg *sync.WaitGroup) {

	defer wg.Done()

	for {

		select {

		case <-server.shutdown:
			slog.Info("monitor client exiting...")
			handleShutdown(conn)
			return

		default:

			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			if err := server.handleRequest(conn); err != nil {
				return
			}
		}
	}
}

func (server *Server) listen(listenerWaitGroup, clientWaitGroup *sync.WaitGroup) {

	defer listenerWaitGroup.Done()

	for {

		conn, err := server.listener.Accept()

		if errors.Is(err, net.ErrClosed) {
			return
		}

		if err != nil {
			slog.Error(err.Error(), "msg", "error while accepting connection")
			continue
		}

		slog.Info("monitor client joined from " + conn.RemoteAddr().String())

		clientWaitGroup.Add(1)
		go server.handleClient(conn, clientWaitGroup)
	}
}

// Run serves clients until Shutdown is called.
func (server *Server) Run() {

	clientWaitGroup := &sync.WaitGroup{}
	listenerWaitGroup := &sync.WaitGroup{}

	listenerWaitGroup.Add(1)
	go server.listen(listenerWaitGroup, clientWaitGroup)

	listenerWaitGroup.Wait()
	clientWaitGroup.Wait()
}

// Shutdown closes the listener and tells every connected client to go away.
func (server *Server) Shutdown() {

	server.shutdownOnce.Do(func() {

		slog.Info("monitor shutdown initiated...")
		server.listener.Close()
		close(server.shutdown)
	})
}
