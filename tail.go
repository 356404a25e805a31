package bcycle

// TailInfo is logged when tails are added or removed.
type TailInfo struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// AddTail registers background work that continues after the response was sent. The returned
// function marks the work done. Once the request replied and all tails are done a
// [TailDrained] event is emitted exactly once. Adding a tail after the request started
// waiting on its tails panics.
func (r *Request) AddTail(name string) func() {
	if name == "" {
		name = "unknown"
	}

	r.mu.Lock()
	if r.phase == phaseWagging {
		r.mu.Unlock()
		panic("bcycle: cannot add a tail after the response was finalized")
	}

	id := r.tailIDs
	r.tailIDs++
	r.tails[id] = name
	r.mu.Unlock()

	info := TailInfo{Name: name, ID: id}
	r.Log([]string{"bcycle", "tail", "add"}, info)

	return func() { r.dropTail(info) }
}

func (r *Request) dropTail(info TailInfo) {
	r.mu.Lock()
	if _, ok := r.tails[info.ID]; !ok {
		r.mu.Unlock()
		r.Log([]string{"bcycle", "tail", "remove", "error"}, info)
		return
	}

	delete(r.tails, info.ID)
	last := len(r.tails) == 0 && r.phase == phaseWagging
	r.mu.Unlock()

	if !last {
		r.Log([]string{"bcycle", "tail", "remove"}, info)
		return
	}

	r.Log([]string{"bcycle", "tail", "remove", "last"}, info)
	r.engine.drain(r)
}

// PendingTails returns the names of the tails that did not complete yet.
func (r *Request) PendingTails() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tails))
	for id := range r.tailIDs {
		if name, ok := r.tails[id]; ok {
			names = append(names, name)
		}
	}
	return names
}
