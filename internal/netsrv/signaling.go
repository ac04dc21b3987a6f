package netsrv

import (
	"bytes"
	"encoding/json"
	"strings"

	"peerd/pkg/types"
)

// drainSignalLines processes every complete newline-delimited frame in the
// buffer. Each line is parsed independently: one malformed line never blocks
// the well-formed lines around it.
func (c *conn) drainSignalLines() {
	for {
		c.mu.Lock()
		i := bytes.IndexByte(c.buf, '\n')
		if i < 0 {
			c.mu.Unlock()
			return
		}
		line := string(c.buf[:i])
		c.buf = c.buf[i+1:]
		c.mu.Unlock()

		c.handleSignalLine(strings.TrimSpace(line))
	}
}

func (c *conn) handleSignalLine(line string) {
	if line == "" {
		return
	}
	var msg types.SignalMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		signalLinesTotal.WithLabelValues("malformed").Inc()
		c.srv.log.Debug().Err(err).Str("line", truncate(line, 120)).Msg("malformed signaling line")
		return
	}

	switch msg.Type {
	case "answer":
		var sdp string
		if err := json.Unmarshal(msg.Data, &sdp); err != nil || sdp == "" {
			signalLinesTotal.WithLabelValues("malformed").Inc()
			c.srv.log.Debug().Msg("answer without sdp")
			return
		}
		peer := msg.PeerID
		if peer == "" {
			peer = c.peerID
		}
		if err := c.srv.DeliverAnswer(sdp, peer); err != nil {
			c.srv.log.Warn().Err(err).Str("peer", peer).Msg("answer dropped")
		}
		c.sendSignal(types.SignalMessage{Type: "connected", PeerID: peer})
		signalLinesTotal.WithLabelValues("answer").Inc()
	case "ping":
		c.sendSignal(types.SignalMessage{Type: "ping", Data: json.RawMessage(`"pong"`)})
		signalLinesTotal.WithLabelValues("ping").Inc()
	case "ice":
		// Media transport is not ours; candidates are only logged.
		signalLinesTotal.WithLabelValues("ice").Inc()
		c.srv.log.Debug().Str("peer", c.peerID).Msg("ice candidate received")
	case "connected":
		signalLinesTotal.WithLabelValues("connected").Inc()
	default:
		signalLinesTotal.WithLabelValues("unknown").Inc()
		c.srv.log.Info().Str("type", msg.Type).Msg("unknown signaling message type")
	}
}

// sendOffer delivers the pending offer to this signaling peer.
func (c *conn) sendOffer(offer Offer) {
	data, _ := json.Marshal(offer.SDP)
	c.sendSignal(types.SignalMessage{Type: "offer", Data: data, PeerID: offer.PeerID})
	c.srv.log.Info().Str("peer", offer.PeerID).Msg("offer delivered")
}

func (c *conn) sendSignal(msg types.SignalMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b = append(b, '\n')
	c.wmu.Lock()
	_, werr := c.nc.Write(b)
	c.wmu.Unlock()
	if werr != nil {
		c.srv.log.Debug().Err(werr).Msg("signaling write failed")
		c.close()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
