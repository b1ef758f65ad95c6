package channel

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"
)

// InboundProcessor handles one inbound message and replies through sender.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, cfg ChannelConfig, msg InboundMessage, sender ReplySender) error
}

const inboundQueueSize = 64

type inboundTask struct {
	ctx context.Context
	cfg ChannelConfig
	msg InboundMessage
}

// HandleInbound routes an inbound message to the processor. Once the worker
// pool is running the message is queued on its thread's worker, so messages
// of one thread are processed in arrival order; before that it is processed
// inline.
func (m *Manager) HandleInbound(ctx context.Context, cfg ChannelConfig, msg InboundMessage) error {
	if m.processor == nil {
		return fmt.Errorf("inbound processor not configured")
	}
	if msg.Channel == "" {
		msg.Channel = cfg.ChannelType
	}
	if msg.BotID == "" {
		msg.BotID = cfg.BotID
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	if m.inboundCtx == nil {
		return m.processInbound(ctx, cfg, msg)
	}
	task := inboundTask{ctx: context.WithoutCancel(ctx), cfg: cfg, msg: msg}
	select {
	case m.queueFor(msg) <- task:
		return nil
	case <-m.inboundCtx.Done():
		return fmt.Errorf("inbound queue closed: %w", m.inboundCtx.Err())
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) startInboundWorkers(ctx context.Context) {
	m.inboundOnce.Do(func() {
		m.inboundQueues = make([]chan inboundTask, m.inboundWorkers)
		for i := range m.inboundQueues {
			m.inboundQueues[i] = make(chan inboundTask, inboundQueueSize)
		}
		m.inboundCtx, m.inboundCancel = context.WithCancel(ctx)
		for i, queue := range m.inboundQueues {
			go m.runInboundWorker(i, queue)
		}
	})
}

func (m *Manager) queueFor(msg InboundMessage) chan inboundTask {
	h := fnv.New32a()
	_, _ = h.Write([]byte(msg.ThreadKey()))
	return m.inboundQueues[h.Sum32()%uint32(len(m.inboundQueues))]
}

func (m *Manager) runInboundWorker(id int, queue <-chan inboundTask) {
	for {
		select {
		case <-m.inboundCtx.Done():
			return
		case task := <-queue:
			if err := m.processInbound(task.ctx, task.cfg, task.msg); err != nil {
				m.logger.Error("inbound processing failed",
					slog.Int("worker", id),
					slog.String("config_id", task.cfg.ID),
					slog.String("route", task.msg.RoutingKey()),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (m *Manager) processInbound(ctx context.Context, cfg ChannelConfig, msg InboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inbound processor panic: %v", r)
		}
	}()
	return m.processor.HandleInbound(ctx, cfg, msg, m.newReplySender(cfg, msg.Channel))
}
