package mux

import (
	"errors"
	"io"
)

// startPump hands the input pump to the channel's executor, creating an
// owned single worker when the caller lent none.
func (c *SessionChannel) startPump() {
	c.execMu.Lock()
	if c.pumpExec.exec == nil {
		w := newSingleWorker()
		c.pumpExec = executorHandle{exec: w, owned: true}
		c.log.Debug().Str("worker", w.name).Msg("starting input pump")
	}
	exec := c.pumpExec.exec
	c.execMu.Unlock()
	exec.Go(c.pumpInput)
}

// pumpInput copies bytes from the input source into the channel write
// path until the source ends or the channel closes. The blocking read
// cannot be interrupted, so the close future is checked once per cycle;
// on an immediate close the worker is reclaimed regardless, and a pump
// stuck in a read is simply never observed again.
func (c *SessionChannel) pumpInput() {
	buf := make([]byte, c.maxRemotePayload)
	for !c.closed.isSet() {
		n, err := boundedRead(c.in, buf, c.session.cfg.PumpChunkSize)
		// every completed read counts as activity, even an empty one
		c.session.ResetIdleTimeout()
		if n > 0 {
			if _, werr := c.WriteData(buf[:n]); werr != nil {
				if !c.isClosing() {
					c.log.Error().Err(werr).Msg("pump: channel write failed")
					c.Close()
				}
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// end of input only ends our direction, the peer may
				// still be sending
				c.log.Debug().Msg("pump: input exhausted, sending eof")
				if werr := c.CloseWrite(); werr != nil {
					c.log.Debug().Err(werr).Msg("pump: sending eof")
				}
			} else if !c.isClosing() {
				c.log.Error().Err(err).Msg("pump: reading input")
				c.Close()
			}
			return
		}
	}
}

// boundedRead fills buf with at most maxChunk bytes per Read call,
// continuing only while the source reports more bytes immediately
// available. A short read with nothing buffered returns early rather
// than waiting to fill the chunk, keeping interactive input snappy.
func boundedRead(r io.Reader, buf []byte, maxChunk int) (n int, err error) {
	type buffered interface {
		Buffered() int
	}
	for {
		limit := len(buf) - n
		if maxChunk > 0 && maxChunk < limit {
			limit = maxChunk
		}
		nr, rerr := r.Read(buf[n : n+limit])
		n += nr
		if rerr != nil {
			if n > 0 && errors.Is(rerr, io.EOF) {
				return n, nil
			}
			return n, rerr
		}
		if nr == 0 || n >= len(buf) {
			return n, nil
		}
		if b, ok := r.(buffered); !ok || b.Buffered() <= 0 {
			return n, nil
		}
	}
}
