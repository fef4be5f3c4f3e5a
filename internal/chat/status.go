package chat

import "github.com/liliang-cn/askstream/internal/domain"

// nextStatus advances the status tracker for one frame.
//
// Status frames set the server-reported phase. The streaming phase is never
// announced by the server; it is inferred from the first non-empty text
// frame. Terminal frames return to idle.
func nextStatus(cur domain.ChatStatus, frame domain.Frame) domain.ChatStatus {
	switch frame.Type {
	case domain.FrameStatus:
		if frame.Status == "" {
			return cur
		}
		return domain.ChatStatus{
			Status:       frame.Status,
			Message:      frame.Message,
			SourcesCount: frame.SourcesCount,
		}
	case domain.FrameText:
		if frame.Content == "" || cur.Status == domain.StatusStreaming {
			return cur
		}
		return domain.ChatStatus{Status: domain.StatusStreaming, SourcesCount: cur.SourcesCount}
	case domain.FrameDone, domain.FrameError:
		return domain.IdleStatus()
	}
	return cur
}
