package server

import (
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// onStats serves every session's diagnostics keyed by session id.
func (s *Server) onStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sessions := make(map[string]*structpb.Value, len(s.connections))
	for id, conn := range s.connections {
		st, err := conn.session.Stats().ToProto()
		if err != nil {
			s.mu.RUnlock()
			s.logger.Warn("stats", zap.Stringer("session", id), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sessions[id.String()] = structpb.NewStructValue(st)
	}
	s.mu.RUnlock()

	b, err := protojson.Marshal(&structpb.Struct{Fields: sessions})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
