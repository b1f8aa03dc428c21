// Command fifoserver exposes a single FIFO file cache over HTTP and gRPC.
//
// Values travel as raw JSON and are stored verbatim; receipts travel as JSON
// objects and can be held by any client as its external index. A stale
// receipt is reported as {"found": false}, not as an error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/SimonWaldherr/tinyFIFO/internal/storage/fifo"
)

// Flags
var (
	flagPath      = flag.String("path", "fifoserver.cache", "backing file path")
	flagPageSize  = flag.Int("page-size", 4096, "page size in bytes")
	flagCapacity  = flag.Int("capacity", 4096*256, "total capacity in bytes (multiple of page size)")
	flagHTTP      = flag.String("http", ":8080", "HTTP listen address (empty to disable)")
	flagGRPC      = flag.String("grpc", ":9090", "gRPC listen address (empty to disable)")
	flagStatsCron = flag.String("stats-cron", "@every 1m", "cron spec for stats logging (empty to disable)")
	flagVerbose   = flag.Bool("v", false, "Verbose logging")
)

// HTTP / gRPC types
type writeRequest struct {
	Value json.RawMessage `json:"value"`
}
type writeResponse struct {
	Receipt  *fifo.WriteReceipt `json:"receipt,omitempty"`
	Error    string             `json:"error,omitempty"`
	Duration string             `json:"duration"`
}

type readRequest struct {
	Receipt fifo.WriteReceipt `json:"receipt"`
}
type readResponse struct {
	Found    bool            `json:"found"`
	Value    json.RawMessage `json:"value,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration string          `json:"duration"`
}

type statsRequest struct{}
type statsResponse struct {
	Stats     fifo.CacheStats `json:"stats"`
	PageSize  int             `json:"page_size"`
	PageCount int             `json:"page_count"`
	Capacity  int             `json:"capacity"`
}

// gRPC JSON codec
type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)     { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// gRPC service interface and descriptors (manual, no protobuf)
type FifoCacheServer interface {
	Write(context.Context, *writeRequest) (*writeResponse, error)
	Read(context.Context, *readRequest) (*readResponse, error)
	Stats(context.Context, *statsRequest) (*statsResponse, error)
}

func registerFifoCacheServer(s *grpc.Server, srv FifoCacheServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "tinyfifo.FifoCache",
		HandlerType: (*FifoCacheServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Write", Handler: _FifoCache_Write_Handler},
			{MethodName: "Read", Handler: _FifoCache_Read_Handler},
			{MethodName: "Stats", Handler: _FifoCache_Stats_Handler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "tinyfifo", // informational
	}, srv)
}

func _FifoCache_Write_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(writeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FifoCacheServer).Write(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tinyfifo.FifoCache/Write"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FifoCacheServer).Write(ctx, req.(*writeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FifoCache_Read_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(readRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FifoCacheServer).Read(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tinyfifo.FifoCache/Read"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FifoCacheServer).Read(ctx, req.(*readRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FifoCache_Stats_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(statsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FifoCacheServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tinyfifo.FifoCache/Stats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FifoCacheServer).Stats(ctx, req.(*statsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// server state
type server struct {
	cache *fifo.FifoFileCache
}

// FifoCacheServer implementation
func (s *server) Write(ctx context.Context, req *writeRequest) (*writeResponse, error) {
	start := time.Now()
	if len(req.Value) == 0 {
		return &writeResponse{Error: "missing value", Duration: time.Since(start).String()}, nil
	}
	r, err := s.cache.Write([]byte(req.Value))
	if err != nil {
		return &writeResponse{Error: err.Error(), Duration: time.Since(start).String()}, nil
	}
	if *flagVerbose {
		log.Printf("write: page=%d offset=%d version=%d len=%d", r.PageID, r.PageOffset, r.Version, r.Length)
	}
	return &writeResponse{Receipt: &r, Duration: time.Since(start).String()}, nil
}

func (s *server) Read(ctx context.Context, req *readRequest) (*readResponse, error) {
	start := time.Now()
	if bad := geometryError(s.cache, req.Receipt); bad != "" {
		// A network peer can send arbitrary receipts; reject them at the
		// edge instead of letting the cache treat them as caller bugs.
		return &readResponse{Error: bad, Duration: time.Since(start).String()}, nil
	}
	var value []byte
	ok, err := s.cache.Read(req.Receipt, &value)
	if err != nil {
		return &readResponse{Error: err.Error(), Duration: time.Since(start).String()}, nil
	}
	if !ok {
		return &readResponse{Found: false, Duration: time.Since(start).String()}, nil
	}
	return &readResponse{Found: true, Value: json.RawMessage(value), Duration: time.Since(start).String()}, nil
}

func (s *server) Stats(ctx context.Context, req *statsRequest) (*statsResponse, error) {
	return &statsResponse{
		Stats:     s.cache.Stats(),
		PageSize:  s.cache.PageSize(),
		PageCount: s.cache.PageCount(),
		Capacity:  s.cache.Capacity(),
	}, nil
}

// geometryError validates a wire receipt against the cache geometry and
// returns a description of the violation, or "".
func geometryError(c *fifo.FifoFileCache, r fifo.WriteReceipt) string {
	if uint64(r.PageID) >= uint64(c.PageCount()) {
		return "receipt page id out of range"
	}
	if r.Length > uint64(c.PageSize()) || uint64(r.PageOffset) > uint64(c.PageSize()) ||
		uint64(r.PageOffset)+r.Length > uint64(c.PageSize()) {
		return "receipt range escapes page"
	}
	return ""
}

// HTTP handlers
func (s *server) handleWrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, _ := s.Write(r.Context(), &req)
	writeJSON(w, resp)
}

func (s *server) handleRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req readRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, _ := s.Read(r.Context(), &req)
	writeJSON(w, resp)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, _ := s.Stats(r.Context(), &statsRequest{})
	writeJSON(w, map[string]any{
		"ok":         true,
		"time":       time.Now().Format(time.RFC3339),
		"path":       s.cache.Path(),
		"page_size":  stats.PageSize,
		"page_count": stats.PageCount,
		"stats":      stats.Stats,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	flag.Parse()

	cache, err := fifo.New(*flagPath, *flagPageSize, *flagCapacity, fifo.RawCodec{})
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	srv := &server{cache: cache}

	// Periodic stats logging
	if *flagStatsCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(*flagStatsCron, func() {
			log.Printf("stats: %s", cache.Stats())
		}); err != nil {
			log.Fatalf("stats cron spec %q: %v", *flagStatsCron, err)
		}
		c.Start()
		defer c.Stop()
	}

	// Register JSON codec for gRPC
	encoding.RegisterCodec(jsonCodec{})

	// Start gRPC server
	var grpcErr error
	if *flagGRPC != "" {
		go func() {
			lis, err := net.Listen("tcp", *flagGRPC)
			if err != nil {
				log.Printf("gRPC listen error: %v", err)
				grpcErr = err
				return
			}
			gs := grpc.NewServer()
			registerFifoCacheServer(gs, srv)
			log.Printf("gRPC listening on %s", *flagGRPC)
			if err := gs.Serve(lis); err != nil {
				log.Printf("gRPC serve error: %v", err)
				grpcErr = err
			}
		}()
	}

	// Start HTTP server
	if *flagHTTP != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/write", srv.handleWrite)
		mux.HandleFunc("/api/read", srv.handleRead)
		mux.HandleFunc("/api/status", srv.handleStatus)
		log.Printf("HTTP listening on %s", *flagHTTP)
		if err := http.ListenAndServe(*flagHTTP, mux); err != nil {
			log.Printf("HTTP serve error: %v", err)
			if grpcErr != nil {
				os.Exit(1)
			}
		}
	} else {
		// If HTTP disabled, block on gRPC only
		select {}
	}
}
