package game

// Agent is one snake on the board: its body cells, head first.
// An empty body means the agent is dead.
type Agent struct {
	body []Cell
}

// NewAgent copies cells into a fresh Agent.
func NewAgent(cells ...Cell) Agent {
	if len(cells) == 0 {
		return Agent{}
	}
	body := make([]Cell, len(cells))
	copy(body, cells)
	return Agent{body: body}
}

// DeadAgent returns an agent with no body.
func DeadAgent() Agent {
	return Agent{}
}

// Alive reports whether the agent still has a body.
func (a Agent) Alive() bool {
	return len(a.body) > 0
}

// Len is the body length; zero for a dead agent.
func (a Agent) Len() int {
	return len(a.body)
}

// Head returns the head cell and whether the agent is alive.
func (a Agent) Head() (Cell, bool) {
	if len(a.body) == 0 {
		return Cell{}, false
	}
	return a.body[0], true
}

// Body returns every segment after the head. The slice must not be modified.
func (a Agent) Body() []Cell {
	if len(a.body) == 0 {
		return nil
	}
	return a.body[1:]
}

// Cells returns a copy of all segments, head first.
func (a Agent) Cells() []Cell {
	if len(a.body) == 0 {
		return nil
	}
	out := make([]Cell, len(a.body))
	copy(out, a.body)
	return out
}

// Update moves the agent one step. Landing on food keeps the old tail so the
// agent grows by one; otherwise the tail is dropped. Bounds and collisions
// are not checked here.
func (a Agent) Update(m Move, food FoodSet) Agent {
	if len(a.body) == 0 {
		return Agent{}
	}

	newHead := a.body[0].Add(m)
	keep := len(a.body) - 1
	if food.Contains(newHead) {
		keep = len(a.body)
	}

	body := make([]Cell, 0, keep+1)
	body = append(body, newHead)
	body = append(body, a.body[:keep]...)
	return Agent{body: body}
}
