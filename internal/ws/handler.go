package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

type HandlerOptions struct {
	OriginPatterns []string
	ReadLimit      int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

func (o HandlerOptions) withDefaults() HandlerOptions {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 8 << 10
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

func Handler(d *Dispatcher, opts HandlerOptions, logger *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(opts.ReadLimit)

		s, err := d.Open()
		if err != nil {
			logger.Error("open session", zap.Error(err))
			conn.Close(websocket.StatusInternalError, "server error")
			return
		}
		defer d.Close(s)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writeLoop(ctx, cancel, conn, s, opts)

		// Reader loop. Idle clients stay connected; the writer's pings notice
		// dead peers.
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					s.log.Debug("read ended", zap.Error(err))
				}
				return
			}
			d.Dispatch(ctx, s, data)
		}
	}
}

func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, s *Session, opts HandlerOptions) {
	defer cancel()

	ping := time.NewTicker(opts.PingInterval)
	defer ping.Stop()

	out := s.Client.Outbox()
	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-out:
			if !ok {
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			wcancel()
			if err != nil {
				s.log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				s.log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
