package mux

import "sync"

// chanList is a thread safe channel list.
type chanList struct {
	sync.Mutex

	// chans are indexed by the local id of the channel, offset by the
	// offset below.
	chans []Channel

	// Local ids start at the offset so id zero never appears on the
	// wire, which makes misrouted messages easier to spot.
	offset uint32
}

// add assigns the next free local id to ch and registers it.
func (c *chanList) add(ch Channel) uint32 {
	c.Lock()
	defer c.Unlock()
	for i := range c.chans {
		if c.chans[i] == nil {
			c.chans[i] = ch
			return uint32(i) + c.offset
		}
	}
	c.chans = append(c.chans, ch)
	return uint32(len(c.chans)-1) + c.offset
}

// getChan returns the channel for the given local id, or nil.
func (c *chanList) getChan(id uint32) Channel {
	c.Lock()
	defer c.Unlock()
	if id >= c.offset && id-c.offset < uint32(len(c.chans)) {
		return c.chans[id-c.offset]
	}
	return nil
}

func (c *chanList) remove(id uint32) {
	c.Lock()
	defer c.Unlock()
	if id >= c.offset && id-c.offset < uint32(len(c.chans)) {
		c.chans[id-c.offset] = nil
	}
}

// dropAll removes and returns all registered channels.
func (c *chanList) dropAll() []Channel {
	c.Lock()
	defer c.Unlock()
	var r []Channel
	for _, ch := range c.chans {
		if ch != nil {
			r = append(r, ch)
		}
	}
	c.chans = nil
	return r
}
