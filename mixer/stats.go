package mixer

import (
	"google.golang.org/protobuf/types/known/structpb"
)

const bytesPerKilobit = 1000.0 / 8

// Stats is a point-in-time copy of a session's diagnostics.
type Stats struct {
	DisplayName                    string
	NumAvatarsSentLastFrame        int64
	AvgOtherAvatarStarvesPerSecond float64
	AvgOtherAvatarSkipsPerSecond   float64
	TotalNumOutOfOrderSends        uint64
	OutboundKbps                   float64
	InboundKbps                    float64
	AvatarDataReceiveRate          float64
	RecentOtherAvatarsInView       int64
	RecentOtherAvatarsOutOfView    int64
}

// ToProto lays the stats out under the keys the stats page expects.
func (s Stats) ToProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"display_name":                    s.DisplayName,
		"num_avs_sent_last_frame":         s.NumAvatarsSentLastFrame,
		"avg_other_av_starves_per_second": s.AvgOtherAvatarStarvesPerSecond,
		"avg_other_av_skips_per_second":   s.AvgOtherAvatarSkipsPerSecond,
		"total_num_out_of_order_sends":    s.TotalNumOutOfOrderSends,
		"outbound_av_data_kbps":           s.OutboundKbps,
		"inbound_av_data_kbps":            s.InboundKbps,
		"av_data_receive_rate":            s.AvatarDataReceiveRate,
		"recent_other_av_in_view":         s.RecentOtherAvatarsInView,
		"recent_other_av_out_of_view":     s.RecentOtherAvatarsOutOfView,
	})
}

// Stats may be called from any goroutine.
func (s *Session) Stats() Stats {
	return Stats{
		DisplayName:                    s.avatar.DisplayName(),
		NumAvatarsSentLastFrame:        s.numAvatarsSentLastFrame.Load(),
		AvgOtherAvatarStarvesPerSecond: s.otherAvatarStarves.Rate(),
		AvgOtherAvatarSkipsPerSecond:   s.otherAvatarSkips.Rate(),
		TotalNumOutOfOrderSends:        s.sequence.OutOfOrder(),
		OutboundKbps:                   s.outboundBytes.Rate() / bytesPerKilobit,
		InboundKbps:                    s.avatar.AverageBytesReceivedPerSecond() / bytesPerKilobit,
		AvatarDataReceiveRate:          s.avatar.ReceiveRate(),
		RecentOtherAvatarsInView:       s.recentOtherAvatarsInView.Load(),
		RecentOtherAvatarsOutOfView:    s.recentOtherAvatarsOutOfView.Load(),
	}
}

func (s *Session) SetNumAvatarsSentLastFrame(n int) {
	s.numAvatarsSentLastFrame.Store(int64(n))
}

// IncrementNumOtherAvatarStarves records another avatar that had nothing new
// to send this frame.
func (s *Session) IncrementNumOtherAvatarStarves() {
	s.otherAvatarStarves.Add(1)
}

// IncrementNumOtherAvatarSkips records another avatar left out of this frame.
func (s *Session) IncrementNumOtherAvatarSkips() {
	s.otherAvatarSkips.Add(1)
}

func (s *Session) RecordSentAvatarData(bytes int) {
	s.outboundBytes.Add(float64(bytes))
}

func (s *Session) SetRecentOtherAvatarsInView(n int) {
	s.recentOtherAvatarsInView.Store(int64(n))
}

func (s *Session) SetRecentOtherAvatarsOutOfView(n int) {
	s.recentOtherAvatarsOutOfView.Store(int64(n))
}

// NumProtocolViolations counts messages dropped as malformed.
func (s *Session) NumProtocolViolations() uint64 {
	return s.numProtocolViolations.Load()
}
