package ctl

import (
	"bufio"
	"io"
	"net"

	"github.com/golang/glog"

	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/coordinator"
	"github.com/shardkeep/shardkeep/store"
	"github.com/shardkeep/shardkeep/wire"
)

// Server answers one shardctl command per connection: read a frame,
// dispatch it against the coordinator (or the store directly, for the
// read-only ls/stats/clients queries), write one response frame,
// close. Unlike cluster.Hub's long-lived peer sessions, a control
// connection carries exactly one request, so there is no outbox or
// per-connection goroutine pair to manage.
type Server struct {
	coord *coordinator.Coordinator
	store *store.Store
	ln    net.Listener
}

func NewServer(coord *coordinator.Coordinator, st *store.Store) *Server {
	return &Server{coord: coord, store: st}
}

// Listen binds addr and returns once the listener is ready; callers
// that need the actual bound address (tests using ":0") can read it
// off Addr() afterward.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return cmn.WrapError(cmn.ErrStorageFailure, "ctl: listen "+addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener's address; valid only after Listen.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve accepts connections until the listener is closed. Call Listen first.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	header := make([]byte, wire.HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		glog.Warningf("ctl: read header: %v", err)
		return
	}
	payload := make([]byte, wire.SplitHeader(header))
	if _, err := io.ReadFull(r, payload); err != nil {
		glog.Warningf("ctl: read payload: %v", err)
		return
	}
	req, err := wire.Decode(payload)
	if err != nil {
		glog.Warningf("ctl: malformed request: %v", err)
		return
	}

	resp := s.dispatch(req)
	frame, err := wire.Encode(resp)
	if err != nil {
		glog.Errorf("ctl: encode response: %v", err)
		return
	}
	if _, err := conn.Write(frame); err != nil {
		glog.Warningf("ctl: write response: %v", err)
	}
}

func (s *Server) dispatch(req cmn.SimpleKVs) cmn.SimpleKVs {
	switch wire.TypeOf(req) {
	case TypeDistribute:
		filePath, _ := req["file_path"].(string)
		blockSize, _ := toInt64(req["block_size"])
		duplicationLevel, _ := toInt(req["duplication_level"])
		validationLevel, _ := toInt(req["validation_level"])
		s.coord.Distribute(coordinator.DistributeRequest{
			FilePath: filePath, BlockSize: blockSize,
			DuplicationLevel: duplicationLevel, ValidationLevel: validationLevel,
		})
		return Response(true, "", nil)
	case TypeRestore:
		name, _ := req["name"].(string)
		dest, _ := req["destination_path"].(string)
		s.coord.Restore(coordinator.RestoreRequest{Name: name, DestinationPath: dest})
		return Response(true, "", nil)
	case TypeReconstruct:
		s.coord.Reconstruct()
		return Response(true, "", nil)
	case TypeDelete:
		name, _ := req["name"].(string)
		s.coord.Delete(name)
		return Response(true, "", nil)
	case TypeKill:
		peer, _ := req["peer"].(string)
		s.coord.Kill(peer)
		return Response(true, "", nil)
	case TypeKillThread:
		name, _ := req["name"].(string)
		s.coord.KillThread(name)
		return Response(true, "", nil)
	case TypeLS:
		recs, err := s.store.QueryAll()
		if err != nil {
			return Response(false, err.Error(), nil)
		}
		files := make([]cmn.SimpleKVs, 0, len(recs))
		for _, rec := range recs {
			files = append(files, cmn.SimpleKVs{
				"name": rec.Name, "file_size": rec.FileSize, "block_number": rec.BlockNumber,
				"duplication_level": rec.DuplicationLevel, "validation_level": rec.ValidationLevel,
			})
		}
		return Response(true, "", cmn.SimpleKVs{"files": files})
	case TypeClients:
		return Response(true, "", cmn.SimpleKVs{"peers": s.coord.Peers()})
	case TypeStats:
		tasks := s.coord.Stats()
		out := make([]cmn.SimpleKVs, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, cmn.SimpleKVs{
				"id": t.ID(), "kind": t.Kind(), "name": t.Name(),
				"running": t.Running(), "success": t.Success(),
				"block_count": t.BlockCount(), "bytes_count": t.BytesCount(),
			})
		}
		return Response(true, "", cmn.SimpleKVs{"tasks": out})
	default:
		return Response(false, "unrecognized command \""+wire.TypeOf(req)+"\"", nil)
	}
}

func toInt64(v interface{}) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func toInt(v interface{}) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
