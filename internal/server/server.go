// Package server exercises spec.md §5's "no shared resources between VM
// instances" directly: it runs an HTTP/WebSocket endpoint where every
// connection is handed its own freshly constructed *vm.VM, so many VMs
// execute concurrently with nothing shared between them.
//
// Grounded on the Upgrader/http.Server shape of
// _examples/sentra-language-sentra/internal/network/websocket.go and
// websocket_server.go, generalized from that package's stateful
// connection registry (clients keyed by ID, broadcast, disconnect) to a
// simpler one-shot-per-connection model: this VM only ever needs to send
// a program, get its print output streamed back, and close — there is no
// multi-client broadcast concern here. The listener goroutine and its
// shutdown goroutine are supervised with golang.org/x/sync/errgroup;
// per-connection goroutines are started by net/http. Grounded on
// sentra-language-sentra's dependency on golang.org/x/sync.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tinyvm/tinyvm/internal/bytecode"
	"github.com/tinyvm/tinyvm/internal/vm"
)

// Server accepts WebSocket connections, each carrying one serialized
// bytecode.Program to execute.
type Server struct {
	upgrader      websocket.Upgrader
	log           zerolog.Logger
	stackCapacity int
}

// New returns a Server with the given initial per-VM operand-stack
// capacity (see cmd's --stack-capacity flag).
func New(log zerolog.Logger, stackCapacity int) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		log:           log,
		stackCapacity: stackCapacity,
	}
}

// ServeHTTP upgrades the connection and runs it until the client closes
// or execution completes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read program")
		return
	}

	program, err := bytecode.Decode(data)
	if err != nil {
		s.writeErr(conn, err)
		return
	}
	if program.Entry < 0 || program.Entry >= len(program.Blocks) {
		s.writeErr(conn, bytecode.ErrBadEntry)
		return
	}
	entry := program.Blocks[program.Entry]
	if err := entry.Verify(); err != nil {
		s.writeErr(conn, err)
		return
	}

	// One VM per connection: its own operand stack, frame stack, and
	// builtin registry, owning nothing any other connection's VM touches.
	sink := &connWriter{conn: conn}
	instance := vm.New(sink, s.stackCapacity)
	instance.SetLogger(s.log.With().Str("vm_id", instance.ID.String()).Logger())

	if err := instance.Run(entry); err != nil {
		s.writeErr(conn, err)
		return
	}
	conn.WriteMessage(websocket.TextMessage, []byte("__done__\n"))
}

func (s *Server) writeErr(conn *websocket.Conn, err error) {
	conn.WriteMessage(websocket.TextMessage, []byte("error: "+err.Error()+"\n"))
}

// connWriter adapts a *websocket.Conn into an io.Writer so it can be
// used directly as a VM's print sink: each Write becomes one text frame.
type connWriter struct {
	conn *websocket.Conn
}

func (c *connWriter) Write(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Serve runs an HTTP server hosting the WebSocket endpoint at addr until
// ctx is canceled, then shuts down gracefully. Grounded on the
// http.Server lifecycle in websocket_server.go's WebSocketStopServer,
// replacing its ad-hoc per-server registry with one errgroup per Serve
// call, since this server has exactly one listener.
func Serve(ctx context.Context, addr string, log zerolog.Logger, stackCapacity int) error {
	srv := New(log, stackCapacity)
	mux := http.NewServeMux()
	mux.Handle("/run", srv)

	httpServer := &http.Server{Addr: addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("vm server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("vm server shutting down")
		return httpServer.Shutdown(context.Background())
	})
	return g.Wait()
}
