package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/nats-io/nats.go"
)

var natsDescriptor = component.Descriptor{
	Name:        "messaging.nats_publish",
	Description: "Publishes a message to a NATS subject and flushes it to the server",
	Group:       "messaging",
	Inputs: []component.InputDef{
		{Name: "subject", Type: component.TypeText},
		{Name: "payload", Type: component.TypeText},
		{Name: "headers", Type: component.TypeJSON, Optional: true},
	},
	Output: component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "url", Env: "NATS_URL", Default: nats.DefaultURL},
		{Key: "token", Secret: true, Env: "NATS_TOKEN"},
		{Key: "username"},
		{Key: "password", Secret: true},
		{Key: "timeout", Default: "5s"},
	},
	SideEffects: "publishes a NATS message",
}

// natsPublisher is the subset of *nats.Conn used for publishing.
type natsPublisher interface {
	PublishMsg(m *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// natsHandle adapts natsPublisher to io.Closer so Lazy can release it.
type natsHandle struct {
	natsPublisher
}

func (h natsHandle) Close() error {
	h.natsPublisher.Close()
	return nil
}

type natsPublish struct {
	component.Base
	conn *component.Lazy[natsHandle]
}

func newNATSPublish(cfg component.Config) (component.Component, error) {
	n := &natsPublish{Base: component.NewBase(natsDescriptor, cfg)}
	n.conn = component.NewLazy(func(context.Context) (natsHandle, error) {
		opts := []nats.Option{
			nats.Name("workflow-components"),
			nats.Timeout(cfg.Duration("timeout", 5*time.Second)),
		}
		if tok := cfg.String("token"); tok != "" {
			opts = append(opts, nats.Token(tok))
		}
		if user := cfg.String("username"); user != "" {
			opts = append(opts, nats.UserInfo(user, cfg.String("password")))
		}
		conn, err := nats.Connect(cfg.String("url"), opts...)
		if err != nil {
			return natsHandle{}, err
		}
		return natsHandle{conn}, nil
	})
	return n, nil
}

// Close drops the NATS connection.
func (n *natsPublish) Close() error { return n.conn.Close() }

func (n *natsPublish) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := n.Require("url"); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Text("subject"))
	if subject == "" || strings.ContainsAny(subject, " \t\r\n") {
		return nil, n.InvalidInput("subject", "must be a non-empty subject without whitespace")
	}
	msg := nats.NewMsg(subject)
	msg.Data = []byte(in.Text("payload"))
	if in.Has("headers") {
		hdrs, ok := in.Value("headers").(map[string]any)
		if !ok {
			return nil, n.InvalidInput("headers", "expected an object")
		}
		for k, v := range hdrs {
			s, ok := v.(string)
			if !ok {
				return nil, n.InvalidInput("headers", "header %q must be a string", k)
			}
			msg.Header.Set(k, s)
		}
	}

	conn, err := n.conn.Get(ctx)
	if err != nil {
		return nil, n.External("connect", err)
	}
	if err := conn.PublishMsg(msg); err != nil {
		return nil, n.External("publish", err)
	}
	if err := conn.FlushTimeout(n.Config().Duration("timeout", 5*time.Second)); err != nil {
		return nil, n.External("flush", err)
	}
	return map[string]any{"subject": subject, "bytes": int64(len(msg.Data))}, nil
}
